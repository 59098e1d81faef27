// Package mlstereo is the optional comparison path: an externally trained
// neural stereo model invoked as a black box. The core pipeline has no
// functional dependency on it.
package mlstereo

import (
	"image"

	"github.com/pkg/errors"

	"github.com/depthward/stereodepth/raster"
)

// Predictor produces a dense disparity field from a rectified pair, with the
// same shape contract as the block matcher's output.
type Predictor interface {
	Predict(left, right *raster.Image) (*raster.DisparityField, error)
}

// disparityScale is the fixed-point scale of the 16-bit disparity images the
// model runner writes: stored value = disparity * 256, 0 = no prediction.
const disparityScale = 256.0

// DecodeDisparityImage converts a 16-bit grayscale disparity image in the
// model runner's fixed-point encoding into a DisparityField.
func DecodeDisparityImage(img image.Image) (*raster.DisparityField, error) {
	gray, ok := img.(*image.Gray16)
	if !ok {
		return nil, errors.Errorf("expected 16-bit grayscale disparity image, got %T", img)
	}
	bounds := gray.Bounds()
	df := raster.NewDisparityField(bounds.Dx(), bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := gray.Gray16At(x, y).Y
			if v == 0 {
				continue
			}
			df.Set(x-bounds.Min.X, y-bounds.Min.Y, float32(float64(v)/disparityScale), raster.Matched)
		}
	}
	return df, nil
}
