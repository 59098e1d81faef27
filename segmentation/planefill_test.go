package segmentation

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/depthward/stereodepth/raster"
)

// quadrantSuperpixels splits a width x height grid into four equal regions.
func quadrantSuperpixels(t *testing.T, width, height int) *Superpixels {
	t.Helper()
	labels := make([]int, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			l := 0
			if x >= width/2 {
				l++
			}
			if y >= height/2 {
				l += 2
			}
			labels[y*width+x] = l
		}
	}
	sp, err := NewSuperpixelsFromLabels(width, height, 4, labels)
	test.That(t, err, test.ShouldBeNil)
	return sp
}

func TestFillDisparityBySuperpixels(t *testing.T) {
	logger := golog.NewTestLogger(t)
	width, height := 32, 32
	sp := quadrantSuperpixels(t, width, height)

	truth := DisparityPlane{A: 0.1, B: 0.05, C: 8}
	df := raster.NewDisparityField(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			df.Set(x, y, float32(truth.Eval(x, y)), raster.Matched)
		}
	}
	// punch a hole in the first quadrant
	for y := 4; y < 8; y++ {
		for x := 4; x < 8; x++ {
			df.Invalidate(x, y)
		}
	}

	cfg := PlaneFitConfig{MinInliers: 12, ResidualThreshold: 0.5, Iterations: 200}
	out, err := FillDisparityBySuperpixels(df, sp, cfg, 1, logger)
	test.That(t, err, test.ShouldBeNil)

	for y := 4; y < 8; y++ {
		for x := 4; x < 8; x++ {
			test.That(t, out.Validity(x, y), test.ShouldEqual, raster.Filled)
			test.That(t, float64(out.Get(x, y)), test.ShouldAlmostEqual, truth.Eval(x, y), 0.1)
		}
	}
	// matched pixels are untouched
	test.That(t, out.Validity(0, 0), test.ShouldEqual, raster.Matched)
	test.That(t, out.Get(0, 0), test.ShouldEqual, df.Get(0, 0))

	// the input field is never mutated
	test.That(t, df.IsValid(5, 5), test.ShouldBeFalse)
}

func TestFillLeavesStarvedRegionsInvalid(t *testing.T) {
	logger := golog.NewTestLogger(t)
	width, height := 32, 32
	sp := quadrantSuperpixels(t, width, height)

	// quadrant 0 fully valid, quadrant 3 fully occluded
	df := raster.NewDisparityField(width, height)
	for y := 0; y < height/2; y++ {
		for x := 0; x < width/2; x++ {
			df.Set(x, y, 10, raster.Matched)
		}
	}

	cfg := PlaneFitConfig{MinInliers: 12, ResidualThreshold: 0.5, Iterations: 200}
	out, err := FillDisparityBySuperpixels(df, sp, cfg, 1, logger)
	test.That(t, err, test.ShouldBeNil)

	// a region with no valid samples gains no fabricated disparities
	for y := height / 2; y < height; y++ {
		for x := width / 2; x < width; x++ {
			test.That(t, out.IsValid(x, y), test.ShouldBeFalse)
		}
	}
}

func TestFillSkipsNonPositivePlaneValues(t *testing.T) {
	logger := golog.NewTestLogger(t)
	width, height := 16, 16
	labels := make([]int, width*height)
	sp, err := NewSuperpixelsFromLabels(width, height, 1, labels)
	test.That(t, err, test.ShouldBeNil)

	// a steeply descending ramp goes non-positive inside the hole
	truth := DisparityPlane{A: -1, B: 0, C: 10}
	df := raster.NewDisparityField(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x >= 12 {
				continue
			}
			df.Set(x, y, float32(truth.Eval(x, y)), raster.Matched)
		}
	}

	cfg := PlaneFitConfig{MinInliers: 12, ResidualThreshold: 0.5, Iterations: 200}
	out, err := FillDisparityBySuperpixels(df, sp, cfg, 1, logger)
	test.That(t, err, test.ShouldBeNil)

	// plane value at x=12 is -2: no geometric meaning, stays invalid
	for y := 0; y < height; y++ {
		for x := 12; x < width; x++ {
			test.That(t, out.IsValid(x, y), test.ShouldBeFalse)
		}
	}
}
