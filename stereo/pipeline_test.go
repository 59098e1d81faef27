package stereo

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/depthward/stereodepth/calib"
	"github.com/depthward/stereodepth/raster"
	"github.com/depthward/stereodepth/utils"
)

func TestNewPipelineRejectsBadInputs(t *testing.T) {
	logger := golog.NewTestLogger(t)
	params := calib.NewIdealStereoParams(64, 48, 100, 0.1)

	cfg := DefaultConfig()
	cfg.FineBlockSize = 4
	_, err := NewPipeline(cfg, params, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid pipeline config")

	cfg = DefaultConfig()
	params.Left.Intrinsics.Fx = 0
	_, err = NewPipeline(cfg, params, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "left.fx")
}

func TestProcessPairPlanarScene(t *testing.T) {
	// a fronto-parallel textured plane at 1m: f=500px and baseline 0.06m put
	// the whole scene at disparity 30
	width, height := 120, 90
	shift := 30
	left, right := shiftedPair(width, height, shift, 11)
	params := calib.NewIdealStereoParams(width, height, 500, 0.06)

	cfg := DefaultConfig()
	cfg.MaxDisparity = 48
	logger := golog.NewTestLogger(t)
	pipeline, err := NewPipeline(cfg, params, logger)
	test.That(t, err, test.ShouldBeNil)

	res, err := pipeline.ProcessPair(Pair{Name: "planar", Left: left, Right: right})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Name, test.ShouldEqual, "planar")
	test.That(t, res.RectifiedL.Width(), test.ShouldEqual, width)
	test.That(t, res.Disparity.ValidCount(), test.ShouldBeGreaterThan, width*height/2)

	depths := make([]float64, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if mm := res.DepthMM.GetDepth(x, y); mm > 0 {
				depths = append(depths, float64(mm)/1000.0)
			}
		}
	}
	test.That(t, len(depths), test.ShouldBeGreaterThan, width*height/2)
	test.That(t, utils.Median(depths...), test.ShouldAlmostEqual, 1.0, 0.02)
}

func TestProcessPairDeterministic(t *testing.T) {
	width, height := 48, 36
	left, right := shiftedPair(width, height, 8, 21)
	params := calib.NewIdealStereoParams(width, height, 150, 0.06)

	cfg := DefaultConfig()
	cfg.MaxDisparity = 16
	cfg.Superpixels.TargetSize = 8
	logger := golog.NewTestLogger(t)
	pipeline, err := NewPipeline(cfg, params, logger)
	test.That(t, err, test.ShouldBeNil)

	pair := Pair{Name: "same", Left: left, Right: right}
	a, err := pipeline.ProcessPair(pair)
	test.That(t, err, test.ShouldBeNil)
	b, err := pipeline.ProcessPair(pair)
	test.That(t, err, test.ShouldBeNil)

	// the seeded plane fill keeps the whole pipeline reproducible
	test.That(t, a.Disparity, test.ShouldResemble, b.Disparity)
	test.That(t, a.Points, test.ShouldResemble, b.Points)
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	width, height := 48, 36
	leftA, rightA := shiftedPair(width, height, 8, 31)
	leftB, rightB := shiftedPair(width, height, 8, 32)
	params := calib.NewIdealStereoParams(width, height, 150, 0.06)

	cfg := DefaultConfig()
	cfg.MaxDisparity = 16
	cfg.Superpixels.TargetSize = 8
	logger := golog.NewTestLogger(t)
	pipeline, err := NewPipeline(cfg, params, logger)
	test.That(t, err, test.ShouldBeNil)

	pairs := []Pair{
		{Name: "good-a", Left: leftA, Right: rightA},
		{Name: "bad", Left: raster.NewImage(10, 10), Right: raster.NewImage(10, 10)},
		{Name: "good-b", Left: leftB, Right: rightB},
	}
	results, err := pipeline.ProcessBatch(pairs, 2)

	// the bad pair fails alone; its siblings still produce results
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bad")
	test.That(t, len(results), test.ShouldEqual, 2)
	names := []string{results[0].Name, results[1].Name}
	test.That(t, names, test.ShouldContain, "good-a")
	test.That(t, names, test.ShouldContain, "good-b")
}

func TestProcessBatchIsolatesPanics(t *testing.T) {
	width, height := 48, 36
	left, right := shiftedPair(width, height, 8, 33)
	params := calib.NewIdealStereoParams(width, height, 150, 0.06)

	cfg := DefaultConfig()
	cfg.MaxDisparity = 16
	cfg.Superpixels.TargetSize = 8
	logger := golog.NewTestLogger(t)
	pipeline, err := NewPipeline(cfg, params, logger)
	test.That(t, err, test.ShouldBeNil)

	// nil images blow up inside the worker; the pair must surface as an
	// error instead of silently vanishing from both slices
	pairs := []Pair{
		{Name: "good", Left: left, Right: right},
		{Name: "nil-images"},
	}
	results, err := pipeline.ProcessBatch(pairs, 2)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "nil-images")
	test.That(t, err.Error(), test.ShouldContainSubstring, "panic")
	test.That(t, len(results), test.ShouldEqual, 1)
	test.That(t, results[0].Name, test.ShouldEqual, "good")
}
