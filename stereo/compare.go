package stereo

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/depthward/stereodepth/raster"
)

// Comparison summarizes how two disparity fields of the same pair differ,
// used for side-by-side evaluation of the pipeline against a neural model.
type Comparison struct {
	// ComparedPixels is the number of pixels valid in both fields.
	ComparedPixels int
	// OnlyA and OnlyB count pixels valid in exactly one field.
	OnlyA, OnlyB int
	// MeanAbsDiff and MedianAbsDiff are over the compared pixels.
	MeanAbsDiff   float64
	MedianAbsDiff float64
}

// CompareDisparities computes agreement statistics between two disparity
// fields covering the same rectified pair.
func CompareDisparities(a, b *raster.DisparityField) (Comparison, error) {
	if err := b.CheckSameSize(a.Width(), a.Height(), "comparison disparity field"); err != nil {
		return Comparison{}, err
	}
	var c Comparison
	diffs := make([]float64, 0, a.Width()*a.Height())
	for y := 0; y < a.Height(); y++ {
		for x := 0; x < a.Width(); x++ {
			aOK, bOK := a.IsValid(x, y), b.IsValid(x, y)
			switch {
			case aOK && bOK:
				c.ComparedPixels++
				d := float64(a.Get(x, y)) - float64(b.Get(x, y))
				if d < 0 {
					d = -d
				}
				diffs = append(diffs, d)
			case aOK:
				c.OnlyA++
			case bOK:
				c.OnlyB++
			}
		}
	}
	if len(diffs) > 0 {
		c.MeanAbsDiff = stat.Mean(diffs, nil)
		sort.Float64s(diffs)
		c.MedianAbsDiff = stat.Quantile(0.5, stat.Empirical, diffs, nil)
	}
	return c, nil
}
