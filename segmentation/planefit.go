package segmentation

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/depthward/stereodepth/utils"
)

var (
	// ErrInsufficientData means a region has too few valid disparity samples
	// to attempt a plane fit. Recovered locally; the region stays invalid.
	ErrInsufficientData = errors.New("too few valid disparity samples to fit a plane")
	// ErrDegenerateFit means no sampled plane reached the inlier threshold,
	// e.g. all samples collinear. Recovered locally like ErrInsufficientData.
	ErrDegenerateFit = errors.New("plane fit found no inlier set above threshold")
)

// DisparityPlane models disparity over a region as a*x + b*y + c.
type DisparityPlane struct {
	A, B, C float64
}

// Eval returns the plane's disparity at pixel (x, y).
func (p DisparityPlane) Eval(x, y int) float64 {
	return p.A*float64(x) + p.B*float64(y) + p.C
}

// PlaneSample is one valid disparity observation inside a region.
type PlaneSample struct {
	X, Y int
	D    float64
}

// PlaneFitConfig bounds the robust estimator.
type PlaneFitConfig struct {
	// MinInliers is the minimum number of samples supporting a plane for a
	// region to be filled at all.
	MinInliers int `json:"min_inliers"`
	// ResidualThreshold is the maximum |plane(x,y) - d| for an inlier, in
	// disparity units.
	ResidualThreshold float64 `json:"residual_threshold"`
	// Iterations is the number of minimal subsets sampled.
	Iterations int `json:"iterations"`
}

// FitDisparityPlane fits a plane to the samples by repeatedly solving minimal
// subsets of three, scoring inlier count under the residual threshold, and
// refining the best-scoring plane with least squares over its inliers. The
// estimator is pure given the same samples and rand source, so fits are
// reproducible. Returns the plane and its inlier count.
func FitDisparityPlane(samples []PlaneSample, cfg PlaneFitConfig, r *rand.Rand) (DisparityPlane, int, error) {
	if len(samples) < cfg.MinInliers || len(samples) < 3 {
		return DisparityPlane{}, 0, ErrInsufficientData
	}
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = 200
	}

	var best DisparityPlane
	bestInliers := 0
	for i := 0; i < iterations; i++ {
		n1 := utils.SampleRandomIntRange(0, len(samples)-1, r)
		n2 := utils.SampleRandomIntRange(0, len(samples)-1, r)
		n3 := utils.SampleRandomIntRange(0, len(samples)-1, r)
		if n1 == n2 || n1 == n3 || n2 == n3 {
			continue
		}
		plane, ok := planeThrough(samples[n1], samples[n2], samples[n3])
		if !ok {
			continue
		}
		inliers := countInliers(plane, samples, cfg.ResidualThreshold)
		if inliers > bestInliers {
			best = plane
			bestInliers = inliers
		}
	}
	if bestInliers < cfg.MinInliers {
		return DisparityPlane{}, 0, ErrDegenerateFit
	}

	refined, err := leastSquaresPlane(best, samples, cfg.ResidualThreshold)
	if err == nil {
		// keep the refinement only if it does not lose support
		if n := countInliers(refined, samples, cfg.ResidualThreshold); n >= bestInliers {
			best = refined
			bestInliers = n
		}
	}
	return best, bestInliers, nil
}

// planeThrough solves the exact plane through three samples. Returns false
// when the samples are collinear in (x, y).
func planeThrough(p1, p2, p3 PlaneSample) (DisparityPlane, bool) {
	x1, y1 := float64(p1.X), float64(p1.Y)
	x2, y2 := float64(p2.X), float64(p2.Y)
	x3, y3 := float64(p3.X), float64(p3.Y)
	det := x1*(y2-y3) - y1*(x2-x3) + (x2*y3 - x3*y2)
	if math.Abs(det) < 1e-9 {
		return DisparityPlane{}, false
	}
	a := (p1.D*(y2-y3) - y1*(p2.D-p3.D) + (p2.D*y3 - p3.D*y2)) / det
	b := (x1*(p2.D-p3.D) - p1.D*(x2-x3) + (x2*p3.D - x3*p2.D)) / det
	c := (x1*(y2*p3.D-y3*p2.D) - y1*(x2*p3.D-x3*p2.D) + p1.D*(x2*y3-x3*y2)) / det
	return DisparityPlane{A: a, B: b, C: c}, true
}

func countInliers(plane DisparityPlane, samples []PlaneSample, threshold float64) int {
	inliers := 0
	for _, s := range samples {
		if math.Abs(plane.Eval(s.X, s.Y)-s.D) < threshold {
			inliers++
		}
	}
	return inliers
}

// leastSquaresPlane refits the plane over the inliers of the given plane.
func leastSquaresPlane(plane DisparityPlane, samples []PlaneSample, threshold float64) (DisparityPlane, error) {
	rows := make([]float64, 0, len(samples)*3)
	obs := make([]float64, 0, len(samples))
	for _, s := range samples {
		if math.Abs(plane.Eval(s.X, s.Y)-s.D) >= threshold {
			continue
		}
		rows = append(rows, float64(s.X), float64(s.Y), 1)
		obs = append(obs, s.D)
	}
	if len(obs) < 3 {
		return DisparityPlane{}, ErrDegenerateFit
	}
	a := mat.NewDense(len(obs), 3, rows)
	b := mat.NewVecDense(len(obs), obs)
	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return DisparityPlane{}, errors.Wrap(ErrDegenerateFit, err.Error())
	}
	return DisparityPlane{A: sol.AtVec(0), B: sol.AtVec(1), C: sol.AtVec(2)}, nil
}
