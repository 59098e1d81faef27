package raster

import (
	"image"

	"github.com/lucasb-eyer/go-colorful"
)

// DepthMap is a grid of millimeter depths. 0 means no depth at that pixel.
type DepthMap struct {
	width, height int
	data          []uint16
}

// NewEmptyDepthMap returns a DepthMap of the given size with no data.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{width: width, height: height, data: make([]uint16, width*height)}
}

// Width returns the horizontal size.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the vertical size.
func (dm *DepthMap) Height() int {
	return dm.height
}

// GetDepth returns the depth in mm at (x, y).
func (dm *DepthMap) GetDepth(x, y int) uint16 {
	return dm.data[(y*dm.width)+x]
}

// Set stores a depth in mm at (x, y).
func (dm *DepthMap) Set(x, y int, mm uint16) {
	dm.data[(y*dm.width)+x] = mm
}

// MinMax returns the smallest and largest nonzero depths in mm.
func (dm *DepthMap) MinMax() (uint16, uint16) {
	min := uint16(0)
	max := uint16(0)
	for _, z := range dm.data {
		if z == 0 {
			continue
		}
		if min == 0 || z < min {
			min = z
		}
		if z > max {
			max = z
		}
	}
	return min, max
}

// ToGray16 converts the depth map to a 16-bit grayscale image for export.
func (dm *DepthMap) ToGray16() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, dm.width, dm.height))
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			z := dm.GetDepth(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i] = uint8(z >> 8)
			img.Pix[i+1] = uint8(z)
		}
	}
	return img
}

// ToPrettyPicture renders the depth map as a hue ramp between hardMin and
// hardMax mm. Pixels without depth stay black.
func (dm *DepthMap) ToPrettyPicture(hardMin, hardMax uint16) image.Image {
	min, max := dm.MinMax()
	if min < hardMin {
		min = hardMin
	}
	if hardMax > 0 && max > hardMax {
		max = hardMax
	}

	img := image.NewRGBA(image.Rect(0, 0, dm.width, dm.height))
	span := float64(max) - float64(min)
	if span <= 0 {
		span = 1
	}
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			z := dm.GetDepth(x, y)
			if z == 0 {
				continue
			}
			if z < min {
				z = min
			}
			if z > max {
				z = max
			}
			ratio := float64(z-min) / span
			hue := 30 + (200.0 * ratio)
			img.Set(x, y, colorful.Hsv(hue, 1.0, 1.0))
		}
	}
	return img
}
