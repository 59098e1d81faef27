package stereo

import (
	"math"

	"github.com/pkg/errors"

	"github.com/depthward/stereodepth/raster"
	"github.com/depthward/stereodepth/utils"
)

// costOutOfRange is assigned where the right image has no candidate pixel for
// a disparity hypothesis, keeping the winner search away from the border.
const costOutOfRange = float32(1e6)

type matchPass struct {
	blockSize    int
	maxDisparity int
	p1, p2       float32
	lrTolerance  float64
}

func newMatchPass(blockSize int, cfg *Config) matchPass {
	p1 := float32(cfg.P1)
	p2 := float32(cfg.P2)
	if p1 == 0 {
		p1 = 8
	}
	if p2 == 0 {
		p2 = 32
	}
	return matchPass{
		blockSize:    blockSize,
		maxDisparity: cfg.MaxDisparity,
		p1:           p1,
		p2:           p2,
		lrTolerance:  cfg.LRTolerance,
	}
}

// MatchDualScale runs the two semi-global block matching passes, one with the
// fine block size and one with the coarse, over a rectified pair. The passes
// share the disparity search range.
func MatchDualScale(left, right *raster.Image, cfg *Config) (fine, coarse *raster.DisparityField, err error) {
	if left.Width() != right.Width() || left.Height() != right.Height() {
		return nil, nil, errors.Errorf("rectified pair sizes disagree: (%d,%d) vs (%d,%d)",
			left.Width(), left.Height(), right.Width(), right.Height())
	}
	fine = matchSemiGlobal(left, right, newMatchPass(cfg.FineBlockSize, cfg))
	coarse = matchSemiGlobal(left, right, newMatchPass(cfg.CoarseBlockSize, cfg))
	return fine, coarse, nil
}

// matchSemiGlobal computes a disparity field for the left image: block
// matching costs aggregated along eight scanline directions with smoothness
// penalties, winner-take-all with a low-magnitude tie-break, sub-pixel
// parabola interpolation, and a left-right consistency check.
func matchSemiGlobal(left, right *raster.Image, pass matchPass) *raster.DisparityField {
	width, height := left.Width(), left.Height()
	numD := pass.maxDisparity + 1

	cost := blockMatchingCost(left, right, pass.blockSize, numD)
	agg := aggregateCosts(cost, width, height, numD, pass.p1, pass.p2)

	out := raster.NewDisparityField(width, height)
	dispLeft := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			k := y*width + x
			d, s := winnerTakeAll(agg[k*numD : (k+1)*numD])
			if s >= costOutOfRange {
				continue
			}
			dispLeft[k] = subpixel(agg[k*numD:(k+1)*numD], d)
			out.Set(x, y, float32(dispLeft[k]), raster.Matched)
		}
	}

	// right-view disparity from the same aggregated volume:
	// the right pixel (x, y) matches left pixel (x+d, y) at disparity d.
	dispRight := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			bestD, bestS := -1, costOutOfRange
			for d := 0; d < numD; d++ {
				if x+d >= width {
					break
				}
				s := agg[((y*width+x+d)*numD)+d]
				if s < bestS {
					bestS = s
					bestD = d
				}
			}
			if bestD >= 0 {
				dispRight[y*width+x] = float64(bestD)
			} else {
				dispRight[y*width+x] = -1
			}
		}
	}

	// invalidate pixels whose left and right estimates disagree
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			k := y*width + x
			if !out.IsValid(x, y) {
				continue
			}
			rx := x - int(math.Round(dispLeft[k]))
			if rx < 0 || rx >= width {
				out.Invalidate(x, y)
				continue
			}
			dr := dispRight[y*width+rx]
			if dr < 0 || math.Abs(dispLeft[k]-dr) > pass.lrTolerance {
				out.Invalidate(x, y)
			}
		}
	}
	return out
}

// blockMatchingCost builds the cost volume: for each pixel and disparity
// hypothesis d, the mean absolute luminance difference over a blockSize
// window between the left pixel and the right pixel d columns to its left.
// Window sums use one summed-area table per disparity.
func blockMatchingCost(left, right *raster.Image, blockSize, numD int) []float32 {
	width, height := left.Width(), left.Height()
	lumL := luminances(left)
	lumR := luminances(right)

	cost := make([]float32, width*height*numD)
	diff := make([]float64, width*height)
	sat := make([]float64, (width+1)*(height+1))
	half := blockSize / 2

	for d := 0; d < numD; d++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if x-d < 0 {
					diff[y*width+x] = 0
					continue
				}
				diff[y*width+x] = math.Abs(lumL[y*width+x] - lumR[y*width+x-d])
			}
		}
		summedAreaTable(diff, sat, width, height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				k := y*width + x
				if x-d < 0 {
					cost[k*numD+d] = costOutOfRange
					continue
				}
				x0 := utils.MaxInt(0, x-half)
				y0 := utils.MaxInt(0, y-half)
				x1 := utils.MinInt(width-1, x+half)
				y1 := utils.MinInt(height-1, y+half)
				area := float64((x1 - x0 + 1) * (y1 - y0 + 1))
				cost[k*numD+d] = float32(boxSum(sat, width, x0, y0, x1, y1) / area)
			}
		}
	}
	return cost
}

func luminances(img *raster.Image) []float64 {
	out := make([]float64, img.Width()*img.Height())
	for y := 0; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			out[y*img.Width()+x] = raster.Luminance(img.GetXY(x, y))
		}
	}
	return out
}

// summedAreaTable fills sat, sized (width+1)*(height+1), with the inclusive
// prefix sums of src.
func summedAreaTable(src, sat []float64, width, height int) {
	stride := width + 1
	for x := 0; x <= width; x++ {
		sat[x] = 0
	}
	for y := 1; y <= height; y++ {
		sat[y*stride] = 0
		rowSum := 0.0
		for x := 1; x <= width; x++ {
			rowSum += src[(y-1)*width+(x-1)]
			sat[y*stride+x] = sat[(y-1)*stride+x] + rowSum
		}
	}
}

func boxSum(sat []float64, width, x0, y0, x1, y1 int) float64 {
	stride := width + 1
	return sat[(y1+1)*stride+(x1+1)] - sat[y0*stride+(x1+1)] - sat[(y1+1)*stride+x0] + sat[y0*stride+x0]
}

var aggregationDirections = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {-1, -1}, {1, -1}, {-1, 1},
}

// aggregateCosts runs the semi-global cost aggregation: along each of eight
// directions, path costs accumulate the pixelwise cost plus a penalty of p1
// for one-step disparity changes and p2 for larger jumps, normalized by the
// path minimum. The per-direction path costs are summed into one volume.
func aggregateCosts(cost []float32, width, height, numD int, p1, p2 float32) []float32 {
	agg := make([]float32, len(cost))
	lr := make([]float32, len(cost))

	for _, dir := range aggregationDirections {
		dx, dy := dir[0], dir[1]
		// iterate so the predecessor along the path is already done
		ys := forwardRange(height, dy >= 0)
		xs := forwardRange(width, dx >= 0)
		for _, y := range ys {
			for _, x := range xs {
				k := y*width + x
				px, py := x-dx, y-dy
				if px < 0 || py < 0 || px >= width || py >= height {
					copy(lr[k*numD:(k+1)*numD], cost[k*numD:(k+1)*numD])
					continue
				}
				pk := py*width + px
				prev := lr[pk*numD : (pk+1)*numD]
				minPrev := prev[0]
				for _, v := range prev[1:] {
					if v < minPrev {
						minPrev = v
					}
				}
				for d := 0; d < numD; d++ {
					best := prev[d]
					if d > 0 && prev[d-1]+p1 < best {
						best = prev[d-1] + p1
					}
					if d < numD-1 && prev[d+1]+p1 < best {
						best = prev[d+1] + p1
					}
					if minPrev+p2 < best {
						best = minPrev + p2
					}
					lr[k*numD+d] = cost[k*numD+d] + best - minPrev
				}
			}
		}
		for i, v := range lr {
			agg[i] += v
		}
	}
	return agg
}

func forwardRange(n int, forward bool) []int {
	out := make([]int, n)
	for i := 0; i < n; i++ {
		if forward {
			out[i] = i
		} else {
			out[i] = n - 1 - i
		}
	}
	return out
}

// winnerTakeAll picks the minimum-cost disparity. Iterating upward with a
// strict comparison breaks ties toward the lower magnitude, biasing against
// spurious far-depth outliers.
func winnerTakeAll(costs []float32) (int, float32) {
	bestD := 0
	bestS := costs[0]
	for d := 1; d < len(costs); d++ {
		if costs[d] < bestS {
			bestS = costs[d]
			bestD = d
		}
	}
	return bestD, bestS
}

// subpixel refines the winning disparity with a parabola through the three
// neighboring costs.
func subpixel(costs []float32, d int) float64 {
	if d <= 0 || d >= len(costs)-1 {
		return float64(d)
	}
	c0 := float64(costs[d-1])
	c1 := float64(costs[d])
	c2 := float64(costs[d+1])
	denom := c0 - 2*c1 + c2
	if denom <= 0 {
		return float64(d)
	}
	offset := (c0 - c2) / (2 * denom)
	return float64(d) + utils.Clamp(offset, -0.5, 0.5)
}
