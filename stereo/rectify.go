package stereo

import (
	"image"
	"math"

	"github.com/golang/geo/r2"

	"github.com/depthward/stereodepth/calib"
	"github.com/depthward/stereodepth/raster"
)

// Rectify applies the calibration-derived remap tables to a raw stereo pair,
// producing two epipolar-aligned images, and crops them to the calibrated
// regions of interest. Pure: inputs are never modified.
func Rectify(left, right *raster.Image, params *calib.StereoParams) (*raster.Image, *raster.Image, error) {
	if left.Width() != params.LeftMap.Width || left.Height() != params.LeftMap.Height {
		return nil, nil, calib.NewConfigurationError("left_map",
			"remap table size (%d,%d) does not match image size (%d,%d)",
			params.LeftMap.Width, params.LeftMap.Height, left.Width(), left.Height())
	}
	if right.Width() != params.RightMap.Width || right.Height() != params.RightMap.Height {
		return nil, nil, calib.NewConfigurationError("right_map",
			"remap table size (%d,%d) does not match image size (%d,%d)",
			params.RightMap.Width, params.RightMap.Height, right.Width(), right.Height())
	}

	rectLeft := remap(left, &params.LeftMap)
	rectRight := remap(right, &params.RightMap)

	if params.LeftROI != nil {
		rectLeft = rectLeft.SubImage(roiRect(params.LeftROI))
	}
	if params.RightROI != nil {
		rectRight = rectRight.SubImage(roiRect(params.RightROI))
	}
	if rectLeft.Width() != rectRight.Width() || rectLeft.Height() != rectRight.Height() {
		return nil, nil, calib.NewConfigurationError("roi",
			"rectified sizes disagree: left (%d,%d), right (%d,%d)",
			rectLeft.Width(), rectLeft.Height(), rectRight.Width(), rectRight.Height())
	}
	return rectLeft, rectRight, nil
}

func roiRect(roi *calib.ROI) image.Rectangle {
	return image.Rect(roi.X, roi.Y, roi.X+roi.Width, roi.Y+roi.Height)
}

func remap(img *raster.Image, table *calib.RemapTable) *raster.Image {
	out := raster.NewImage(table.Width, table.Height)
	for y := 0; y < table.Height; y++ {
		for x := 0; x < table.Width; x++ {
			k := y*table.Width + x
			src := r2.Point{X: float64(table.MapX[k]), Y: float64(table.MapY[k])}
			if c := bilinearColor(src, img); c != nil {
				out.SetXY(x, y, *c)
			}
		}
	}
	return out
}

// bilinearColor interpolates the image at a sub-pixel point. Returns nil when
// the point falls outside the image.
func bilinearColor(pt r2.Point, img *raster.Image) *raster.Color {
	x0 := int(math.Floor(pt.X))
	y0 := int(math.Floor(pt.Y))
	x1, y1 := x0+1, y0+1
	if !img.In(x0, y0) || !img.In(x1, y1) {
		if img.In(x0, y0) {
			c := img.GetXY(x0, y0)
			return &c
		}
		return nil
	}
	fx := pt.X - float64(x0)
	fy := pt.Y - float64(y0)
	c00 := img.GetXY(x0, y0)
	c10 := img.GetXY(x1, y0)
	c01 := img.GetXY(x0, y1)
	c11 := img.GetXY(x1, y1)
	lerp := func(a, b, c, d uint8) uint8 {
		top := float64(a)*(1-fx) + float64(b)*fx
		bot := float64(c)*(1-fx) + float64(d)*fx
		return uint8(math.Round(top*(1-fy) + bot*fy))
	}
	out := raster.Color{
		R: lerp(c00.R, c10.R, c01.R, c11.R),
		G: lerp(c00.G, c10.G, c01.G, c11.G),
		B: lerp(c00.B, c10.B, c01.B, c11.B),
	}
	return &out
}
