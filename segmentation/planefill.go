package segmentation

import (
	"math/rand"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/depthward/stereodepth/raster"
)

// FillDisparityBySuperpixels fills the invalid pixels of each superpixel from
// a robust plane fitted to the region's valid disparities. Regions with too
// few valid samples, or whose samples admit no plane above the inlier
// threshold, are left entirely invalid rather than given fabricated geometry.
// The seed makes the per-region RANSAC fits reproducible.
func FillDisparityBySuperpixels(
	df *raster.DisparityField,
	sp *Superpixels,
	cfg PlaneFitConfig,
	seed int64,
	logger golog.Logger,
) (*raster.DisparityField, error) {
	if err := df.CheckSameSize(sp.Width(), sp.Height(), "disparity field"); err != nil {
		return nil, err
	}
	out := df.Clone()
	r := rand.New(rand.NewSource(seed))

	filledRegions := 0
	for label, region := range sp.Regions() {
		samples := make([]PlaneSample, 0, len(region))
		holes := make([]int, 0)
		for i, p := range region {
			if df.IsValid(p.X, p.Y) {
				samples = append(samples, PlaneSample{X: p.X, Y: p.Y, D: float64(df.Get(p.X, p.Y))})
			} else {
				holes = append(holes, i)
			}
		}
		if len(holes) == 0 {
			continue
		}

		plane, _, err := FitDisparityPlane(samples, cfg, r)
		switch {
		case errors.Is(err, ErrInsufficientData):
			logger.Debugw("leaving region unfilled", "label", label, "samples", len(samples))
			continue
		case errors.Is(err, ErrDegenerateFit):
			logger.Debugw("degenerate plane fit, leaving region unfilled", "label", label, "samples", len(samples))
			continue
		case err != nil:
			return nil, err
		}

		for _, i := range holes {
			p := region[i]
			d := plane.Eval(p.X, p.Y)
			if d <= 0 {
				// a non-positive disparity has no geometric meaning
				continue
			}
			out.Set(p.X, p.Y, float32(d), raster.Filled)
		}
		filledRegions++
	}
	logger.Debugw("plane fill complete", "regions", sp.Count(), "filled", filledRegions)
	return out, nil
}
