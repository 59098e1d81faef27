// Package stereo implements the disparity-to-depth pipeline: rectification,
// dual-scale semi-global matching, edge-confidence fusion, edge-preserving
// refinement, superpixel plane fill, guided smoothing, and metric
// reprojection.
package stereo

import (
	"github.com/pkg/errors"

	"github.com/depthward/stereodepth/segmentation"
)

// Config is the tuning surface of the pipeline.
type Config struct {
	// FineBlockSize and CoarseBlockSize are the odd window sides of the two
	// matching passes.
	FineBlockSize   int `json:"fine_block_size"`
	CoarseBlockSize int `json:"coarse_block_size"`
	// MaxDisparity is the search range shared by both passes.
	MaxDisparity int `json:"max_disparity"`
	// LRTolerance is the left-right consistency tolerance in disparity steps.
	LRTolerance float64 `json:"lr_tolerance"`
	// P1 and P2 are the semi-global smoothness penalties for one-step and
	// larger disparity changes. Zero means derive from the block size.
	P1 int `json:"p1"`
	P2 int `json:"p2"`

	// EdgeBlendGamma shapes the edge-strength blend curve of the fuser;
	// 1 is linear, >1 favors the coarse field except near strong edges.
	EdgeBlendGamma float64 `json:"edge_blend_gamma"`
	// SingleValidPenalty scales down confidence where only one pass matched.
	SingleValidPenalty float64 `json:"single_valid_penalty"`
	// ConsistencySigma converts |fine-coarse| into consistency confidence.
	ConsistencySigma float64 `json:"consistency_sigma"`

	// RefinerSpatialSigma and RefinerColorSigma control the joint bilateral
	// refinement pass.
	RefinerSpatialSigma float64 `json:"refiner_spatial_sigma"`
	RefinerColorSigma   float64 `json:"refiner_color_sigma"`

	// PrefillMaxHoleArea is the largest connected invalid region, in pixels,
	// the ray-marching prefill will close. Zero disables the prefill.
	PrefillMaxHoleArea int `json:"prefill_max_hole_area"`

	// Superpixel segmentation and plane fit bounds.
	Superpixels segmentation.SuperpixelConfig `json:"superpixels"`
	PlaneFit    segmentation.PlaneFitConfig   `json:"plane_fit"`
	// PlaneFitSeed seeds the per-pair RANSAC so fills are reproducible.
	PlaneFitSeed int64 `json:"plane_fit_seed"`

	// SmootherSpatialSigma and SmootherColorSigma control the final guided
	// smoothing pass; gentler than the refiner.
	SmootherSpatialSigma float64 `json:"smoother_spatial_sigma"`
	SmootherColorSigma   float64 `json:"smoother_color_sigma"`

	// MaxDepthMillimeters clamps the exported millimeter depth image.
	MaxDepthMillimeters uint16 `json:"max_depth_mm"`

	// MeasureToleranceMeters is the documented accuracy band reported with
	// each measurement. The achievable band varies per rig; treat this as a
	// label, not a guarantee.
	MeasureToleranceMeters float64 `json:"measure_tolerance_m"`
}

// DefaultConfig returns the tuning used with the handheld rig this pipeline
// was built for.
func DefaultConfig() Config {
	return Config{
		FineBlockSize:          5,
		CoarseBlockSize:        11,
		MaxDisparity:           64,
		LRTolerance:            1,
		EdgeBlendGamma:         1,
		SingleValidPenalty:     0.5,
		ConsistencySigma:       2,
		RefinerSpatialSigma:    2,
		RefinerColorSigma:      0.08,
		PrefillMaxHoleArea:     64,
		Superpixels:            segmentation.SuperpixelConfig{TargetSize: 16, Compactness: 10, Iterations: 10},
		PlaneFit:               segmentation.PlaneFitConfig{MinInliers: 12, ResidualThreshold: 1.0, Iterations: 200},
		PlaneFitSeed:           1,
		SmootherSpatialSigma:   1,
		SmootherColorSigma:     0.12,
		MaxDepthMillimeters:    10000,
		MeasureToleranceMeters: 0.02,
	}
}

// CheckValid rejects configurations the pipeline cannot run with.
func (c *Config) CheckValid() error {
	if c.FineBlockSize < 1 || c.FineBlockSize%2 == 0 {
		return errors.Errorf("fine block size must be odd and positive, got %d", c.FineBlockSize)
	}
	if c.CoarseBlockSize < c.FineBlockSize || c.CoarseBlockSize%2 == 0 {
		return errors.Errorf("coarse block size must be odd and >= fine block size, got %d", c.CoarseBlockSize)
	}
	if c.MaxDisparity < 1 {
		return errors.Errorf("max disparity must be positive, got %d", c.MaxDisparity)
	}
	if c.LRTolerance < 0 {
		return errors.Errorf("left-right tolerance must be non-negative, got %v", c.LRTolerance)
	}
	if c.EdgeBlendGamma <= 0 {
		return errors.Errorf("edge blend gamma must be positive, got %v", c.EdgeBlendGamma)
	}
	if c.SingleValidPenalty < 0 || c.SingleValidPenalty > 1 {
		return errors.Errorf("single-valid penalty must be in [0,1], got %v", c.SingleValidPenalty)
	}
	if c.Superpixels.TargetSize < 2 {
		return errors.Errorf("superpixel target size must be at least 2, got %d", c.Superpixels.TargetSize)
	}
	if c.PlaneFit.MinInliers < 3 {
		return errors.Errorf("plane fit needs at least 3 inliers, got %d", c.PlaneFit.MinInliers)
	}
	if c.PlaneFit.ResidualThreshold <= 0 {
		return errors.Errorf("plane residual threshold must be positive, got %v", c.PlaneFit.ResidualThreshold)
	}
	if c.MaxDepthMillimeters == 0 {
		return errors.New("max depth must be positive")
	}
	return nil
}
