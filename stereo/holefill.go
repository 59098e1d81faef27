package stereo

import (
	"image"
	"math"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/depthward/stereodepth/raster"
	"github.com/depthward/stereodepth/utils"
)

// PrefillSmallHoles finds regions of connected invalid pixels and, for those
// below the configured size, fills them with an edge-aware average of the
// surrounding disparities using 16-point ray-marching. Regions whose border
// disparities are multimodal most likely straddle an object boundary; their
// borders are split into two clusters and each hole pixel takes the disparity
// of the color-closest cluster. Larger holes are left for the plane fill.
func PrefillSmallHoles(df *raster.DisparityField, guide *raster.Image, cfg *Config) (*raster.DisparityField, error) {
	width, height := guide.Width(), guide.Height()
	if err := df.CheckSameSize(width, height, "disparity field"); err != nil {
		return nil, err
	}
	if cfg.PrefillMaxHoleArea <= 0 {
		return df.Clone(), nil
	}

	out := df.Clone()
	for _, seg := range segmentInvalidRegions(df) {
		if len(seg) >= cfg.PrefillMaxHoleArea {
			continue
		}
		borderPoints := holeBorderPoints(seg, df)
		if len(borderPoints) == 0 {
			continue
		}
		if isMultiModal(borderPoints, df, 3) { // hole most likely on an edge
			clusterDisps, clusterColors, err := clusterEdgePoints(borderPoints, df, guide)
			if err != nil {
				return nil, err
			}
			for point := range seg {
				val := matchDisparityToClosestColor(guide.Get(point),
					clusterColors[0], clusterColors[1], clusterDisps[0], clusterDisps[1])
				out.Set(point.X, point.Y, float32(val), raster.Filled)
			}
		} else {
			for point := range seg {
				val := disparityRayMarching(point.X, point.Y, 8, sixteenPoints, df, guide)
				if val > 0 {
					out.Set(point.X, point.Y, float32(val), raster.Filled)
				}
			}
		}
	}
	return out, nil
}

// directions for ray-marching.
var sixteenPoints = []image.Point{
	{0, 2}, {0, -2}, {-2, 0}, {2, 0},
	{-2, 2}, {2, 2}, {-2, -2}, {2, -2},
	{-2, 1}, {-1, 2}, {1, 2}, {2, 1},
	{-2, -1}, {-1, -2}, {1, -2}, {2, -1},
}

// segmentInvalidRegions groups the invalid pixels into connected components.
func segmentInvalidRegions(df *raster.DisparityField) []map[image.Point]bool {
	width, height := df.Width(), df.Height()
	seen := make([]bool, width*height)
	var segments []map[image.Point]bool
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if seen[y*width+x] || df.IsValid(x, y) {
				continue
			}
			seg := make(map[image.Point]bool)
			queue := []image.Point{{x, y}}
			seen[y*width+x] = true
			for len(queue) > 0 {
				p := queue[0]
				queue = queue[1:]
				seg[p] = true
				for _, dir := range fourPoints {
					n := image.Point{p.X + dir.X, p.Y + dir.Y}
					if !df.In(n.X, n.Y) || seen[n.Y*width+n.X] || df.IsValid(n.X, n.Y) {
						continue
					}
					seen[n.Y*width+n.X] = true
					queue = append(queue, n)
				}
			}
			segments = append(segments, seg)
		}
	}
	return segments
}

var fourPoints = []image.Point{{0, 1}, {0, -1}, {-1, 0}, {1, 0}}

// holeBorderPoints returns the valid pixels bordering a connected hole.
func holeBorderPoints(segment map[image.Point]bool, df *raster.DisparityField) map[image.Point]bool {
	borderPoints := make(map[image.Point]bool)
	for hole := range segment {
		for _, dir := range fourPoints {
			point := image.Point{hole.X + dir.X, hole.Y + dir.Y}
			if !df.In(point.X, point.Y) {
				continue
			}
			if df.IsValid(point.X, point.Y) {
				borderPoints[point] = true
			}
		}
	}
	return borderPoints
}

// isMultiModal is a quick check of the number of peaks in the border
// disparities, to distinguish a hole within one object from one spanning a
// foreground/background boundary. Bin width is one disparity step; threshold
// sets how many empty bins between filled bins count as separate peaks.
func isMultiModal(points map[image.Point]bool, df *raster.DisparityField, threshold int) bool {
	disps := pointsMapToSlice(points, df)
	if len(disps) == 0 {
		return false
	}
	min, max := minmax(disps)
	nbins := utils.MaxInt(1, int(max-min))
	hist := histogram.Hist(nbins, disps)
	peaks := 0
	zeros := threshold
	for _, bkt := range hist.Buckets {
		if bkt.Count != 0 {
			if zeros >= threshold {
				peaks++
			}
			zeros = 0
		} else {
			zeros++
		}
	}
	return peaks > 1
}

func minmax(slice []float64) (float64, float64) {
	max := slice[0]
	min := slice[0]
	for _, value := range slice {
		if max < value {
			max = value
		}
		if min > value {
			min = value
		}
	}
	return min, max
}

func pointsMapToSlice(points map[image.Point]bool, df *raster.DisparityField) []float64 {
	slice := make([]float64, 0, len(points))
	for point := range points {
		if df.IsValid(point.X, point.Y) {
			slice = append(slice, float64(df.Get(point.X, point.Y)))
		}
	}
	return slice
}

// colorDisparityPoint clusters border points by their disparity value for use
// with the kmeans module, which needs Coordinates and Distance methods.
type colorDisparityPoint struct {
	p image.Point
	c raster.Color
	d float64
}

func (cp colorDisparityPoint) Coordinates() clusters.Coordinates {
	return clusters.Coordinates([]float64{cp.d})
}

func (cp colorDisparityPoint) Distance(p clusters.Coordinates) float64 {
	return math.Abs(cp.d - p[0])
}

// clusterEdgePoints splits a multimodal border into 2 groups with kmeans, to
// distinguish the foreground and background sides of the hole.
func clusterEdgePoints(borderPoints map[image.Point]bool, df *raster.DisparityField, guide *raster.Image) ([]float64, []raster.Color, error) {
	var d clusters.Observations
	for pt := range borderPoints {
		d = append(d, colorDisparityPoint{pt, guide.Get(pt), float64(df.Get(pt.X, pt.Y))})
	}

	km := kmeans.New()
	partitions, err := km.Partition(d, 2)
	if err != nil {
		return nil, nil, err
	}
	clusterDisps := make([]float64, 0, 2)
	clusterColors := make([]raster.Color, 0, 2)
	for _, c := range partitions {
		clusterDisps = append(clusterDisps, c.Center[0])
		var rSum, gSum, bSum float64
		for _, obs := range c.Observations {
			col := obs.(colorDisparityPoint).c
			rSum += float64(col.R)
			gSum += float64(col.G)
			bSum += float64(col.B)
		}
		n := float64(len(c.Observations))
		clusterColors = append(clusterColors, raster.Color{
			R: uint8(rSum / n), G: uint8(gSum / n), B: uint8(bSum / n),
		})
	}
	return clusterDisps, clusterColors, nil
}

// matchDisparityToClosestColor returns the disparity of the cluster whose
// average color is closest to the hole pixel's color.
func matchDisparityToClosestColor(inColor, color1, color2 raster.Color, disp1, disp2 float64) float64 {
	if inColor.DistanceLab(color1) <= inColor.DistanceLab(color2) {
		return disp1
	}
	return disp2
}

// disparityRayMarching marches out from the missing pixel in the given
// directions until it hits pixels with data, then averages what it found,
// weighing down neighbors whose guidance color differs from the hole pixel.
func disparityRayMarching(x, y, iterations int, directions []image.Point, df *raster.DisparityField, guide *raster.Image) float64 {
	rayPoints := pointsFromRayMarching(x, y, iterations, directions, df)
	colorGaus := raster.GaussianFunction1D(0.1)
	spatialGaus := raster.GaussianFunction2D(2.0)
	dispAvg := 0.0
	weightTot := 0.0
	centerColor := guide.GetXY(x, y)
	for pt := range rayPoints {
		d := float64(df.Get(pt.X, pt.Y))
		colorDistance := centerColor.DistanceLab(guide.Get(pt))
		weight := colorGaus(colorDistance) * spatialGaus(float64(pt.X-x), float64(pt.Y-y))
		dispAvg = (dispAvg*weightTot + d*weight) / (weightTot + weight)
		weightTot += weight
	}
	return math.Max(dispAvg, 0.0)
}

// pointsFromRayMarching collects the surrounding filled-in points,
// 'iterations' times in each of the given directions.
func pointsFromRayMarching(x, y, iterations int, directions []image.Point, df *raster.DisparityField) map[image.Point]bool {
	rayMarchingPoints := make(map[image.Point]bool)
	for _, dir := range directions {
		i, j := x, y
		for iter := 0; iter < iterations; iter++ {
			found := false
			for !found {
				i += dir.X
				j += dir.Y
				if !df.In(i, j) {
					break
				}
				found = df.IsValid(i, j)
			}
			if found {
				rayMarchingPoints[image.Point{i, j}] = true
			} else {
				break
			}
		}
	}
	return rayMarchingPoints
}
