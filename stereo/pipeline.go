package stereo

import (
	"fmt"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/depthward/stereodepth/calib"
	"github.com/depthward/stereodepth/raster"
	"github.com/depthward/stereodepth/segmentation"
)

// Pair is one raw stereo capture waiting to be processed.
type Pair struct {
	Name        string
	Left, Right *raster.Image
}

// Result holds everything the pipeline produces for one pair. All fields are
// immutable once the result is returned; the point field in particular may be
// read by a measurement session while other pairs are still processing.
type Result struct {
	Name       string
	RectifiedL *raster.Image
	RectifiedR *raster.Image
	Disparity  *raster.DisparityField
	Confidence *raster.ConfidenceField
	Points     *PointField
	DepthMM    *raster.DepthMap
}

// Pipeline runs the full disparity-to-depth transformation for a calibrated
// rig. It is safe to share one Pipeline across goroutines; per-pair state
// lives entirely in the Result.
type Pipeline struct {
	cfg    Config
	params *calib.StereoParams
	logger golog.Logger
}

// NewPipeline validates the configuration and calibration once up front.
func NewPipeline(cfg Config, params *calib.StereoParams, logger golog.Logger) (*Pipeline, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "invalid pipeline config")
	}
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, params: params, logger: logger}, nil
}

// Config returns the pipeline's tuning.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// ProcessPair runs every stage in order on one pair. Stages execute strictly
// sequentially; each consumes the previous stage's completed output.
func (p *Pipeline) ProcessPair(pair Pair) (*Result, error) {
	rectL, rectR, err := Rectify(pair.Left, pair.Right, p.params)
	if err != nil {
		return nil, errors.Wrapf(err, "rectifying pair %q", pair.Name)
	}

	fine, coarse, err := MatchDualScale(rectL, rectR, &p.cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "matching pair %q", pair.Name)
	}
	p.logger.Debugw("matched", "pair", pair.Name,
		"fineValid", fine.ValidCount(), "coarseValid", coarse.ValidCount())

	fused, conf, err := FuseDisparities(fine, coarse, rectL, &p.cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "fusing pair %q", pair.Name)
	}

	refined, err := RefineDisparity(fused, conf, rectL, &p.cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "refining pair %q", pair.Name)
	}

	prefilled, err := PrefillSmallHoles(refined, rectL, &p.cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "prefilling pair %q", pair.Name)
	}

	sp, err := segmentation.SegmentSuperpixels(rectL, p.cfg.Superpixels)
	if err != nil {
		return nil, errors.Wrapf(err, "segmenting pair %q", pair.Name)
	}
	filled, err := segmentation.FillDisparityBySuperpixels(prefilled, sp, p.cfg.PlaneFit, p.cfg.PlaneFitSeed, p.logger)
	if err != nil {
		return nil, errors.Wrapf(err, "plane-filling pair %q", pair.Name)
	}

	smoothed, err := GuidedSmooth(filled, rectL, &p.cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "smoothing pair %q", pair.Name)
	}

	points, err := Reproject(smoothed, p.params.QMatrix())
	if err != nil {
		return nil, errors.Wrapf(err, "reprojecting pair %q", pair.Name)
	}

	return &Result{
		Name:       pair.Name,
		RectifiedL: rectL,
		RectifiedR: rectR,
		Disparity:  smoothed,
		Confidence: conf,
		Points:     points,
		DepthMM:    points.ToDepthMap(p.cfg.MaxDepthMillimeters),
	}, nil
}

// ProcessBatch processes independent pairs in parallel, one worker owning a
// pair end to end. A pair's failure never aborts its siblings; the combined
// error reports every failed pair and results holds an entry per success.
func (p *Pipeline) ProcessBatch(pairs []Pair, workers int) ([]*Result, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]*Result, len(pairs))
	errs := make([]error, len(pairs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i := range pairs {
		i := i
		wg.Add(1)
		sem <- struct{}{}
		goutils.PanicCapturingGo(func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("pair %q: panic: %v", pairs[i].Name, r)
					p.logger.Errorw("pair panicked", "pair", pairs[i].Name, "panic", r)
				}
			}()
			res, err := p.ProcessPair(pairs[i])
			if err != nil {
				errs[i] = fmt.Errorf("pair %q: %w", pairs[i].Name, err)
				p.logger.Errorw("pair failed", "pair", pairs[i].Name, "error", err)
				return
			}
			results[i] = res
		})
	}
	wg.Wait()

	out := make([]*Result, 0, len(pairs))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, multierr.Combine(errs...)
}
