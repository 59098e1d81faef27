package stereo

import (
	"math"

	"github.com/depthward/stereodepth/raster"
)

// FuseDisparities blends the fine and coarse disparity fields into one,
// favoring the fine field near guidance-image edges and the coarse field on
// flat regions. It also derives the confidence field consumed by the later
// stages: agreement between the two passes scaled by a validity floor.
func FuseDisparities(fine, coarse *raster.DisparityField, guide *raster.Image, cfg *Config) (*raster.DisparityField, *raster.ConfidenceField, error) {
	width, height := guide.Width(), guide.Height()
	if err := fine.CheckSameSize(width, height, "fine disparity field"); err != nil {
		return nil, nil, err
	}
	if err := coarse.CheckSameSize(width, height, "coarse disparity field"); err != nil {
		return nil, nil, err
	}

	edges := raster.EdgeStrengthMap(guide)
	consistency := raster.GaussianFunction1D(cfg.ConsistencySigma)
	// normalize so perfect agreement yields full confidence
	consistencyScale := 1.0 / consistency(0)

	fused := raster.NewDisparityField(width, height)
	conf := raster.NewConfidenceField(width, height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fineOK := fine.IsValid(x, y)
			coarseOK := coarse.IsValid(x, y)
			switch {
			case fineOK && coarseOK:
				w := math.Pow(edges[y*width+x], cfg.EdgeBlendGamma)
				df := float64(fine.Get(x, y))
				dc := float64(coarse.Get(x, y))
				fused.Set(x, y, float32(w*df+(1-w)*dc), raster.Matched)
				conf.Set(x, y, consistency(df-dc)*consistencyScale)
			case fineOK:
				fused.Set(x, y, fine.Get(x, y), raster.Matched)
				conf.Set(x, y, cfg.SingleValidPenalty)
			case coarseOK:
				fused.Set(x, y, coarse.Get(x, y), raster.Matched)
				conf.Set(x, y, cfg.SingleValidPenalty)
			default:
				// invalid in both inputs stays invalid
			}
		}
	}
	return fused, conf, nil
}
