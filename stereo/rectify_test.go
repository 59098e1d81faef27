package stereo

import (
	"testing"

	"go.viam.com/test"

	"github.com/depthward/stereodepth/calib"
	"github.com/depthward/stereodepth/raster"
)

func TestRectifyIdentity(t *testing.T) {
	width, height := 24, 18
	left := randomTexture(width, height, 1)
	right := randomTexture(width, height, 2)
	params := calib.NewIdealStereoParams(width, height, 100, 0.1)

	rectL, rectR, err := Rectify(left, right, params)
	test.That(t, err, test.ShouldBeNil)

	// identity tables reproduce the input exactly and never alias it
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			test.That(t, rectL.GetXY(x, y), test.ShouldResemble, left.GetXY(x, y))
			test.That(t, rectR.GetXY(x, y), test.ShouldResemble, right.GetXY(x, y))
		}
	}
	rectL.SetXY(0, 0, raster.Color{R: 1})
	test.That(t, left.GetXY(0, 0), test.ShouldNotResemble, raster.Color{R: 1})
}

func TestRectifyShift(t *testing.T) {
	width, height := 16, 8
	img := randomTexture(width, height, 3)
	params := calib.NewIdealStereoParams(width, height, 100, 0.1)
	// shift the left view one pixel to the right
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			params.LeftMap.MapX[y*width+x] = float32(x + 1)
		}
	}

	rectL, _, err := Rectify(img, img, params)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rectL.GetXY(0, 3), test.ShouldResemble, img.GetXY(1, 3))
	// samples past the right edge stay black
	test.That(t, rectL.GetXY(width-1, 3), test.ShouldResemble, raster.Color{})
}

func TestRectifyROICrop(t *testing.T) {
	width, height := 20, 20
	img := randomTexture(width, height, 4)
	params := calib.NewIdealStereoParams(width, height, 100, 0.1)
	params.LeftROI = &calib.ROI{X: 2, Y: 2, Width: 10, Height: 12}
	params.RightROI = &calib.ROI{X: 4, Y: 2, Width: 10, Height: 12}

	rectL, rectR, err := Rectify(img, img, params)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rectL.Width(), test.ShouldEqual, 10)
	test.That(t, rectL.Height(), test.ShouldEqual, 12)
	test.That(t, rectR.Width(), test.ShouldEqual, 10)
	test.That(t, rectL.GetXY(0, 0), test.ShouldResemble, img.GetXY(2, 2))
	test.That(t, rectR.GetXY(0, 0), test.ShouldResemble, img.GetXY(4, 2))
}

func TestRectifySizeErrors(t *testing.T) {
	params := calib.NewIdealStereoParams(16, 16, 100, 0.1)

	_, _, err := Rectify(raster.NewImage(8, 8), raster.NewImage(16, 16), params)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "left_map")

	_, _, err = Rectify(raster.NewImage(16, 16), raster.NewImage(8, 8), params)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "right_map")

	// ROIs that leave the two rectified images different sizes are fatal
	params.LeftROI = &calib.ROI{X: 0, Y: 0, Width: 8, Height: 8}
	_, _, err = Rectify(raster.NewImage(16, 16), raster.NewImage(16, 16), params)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "sizes disagree")
}
