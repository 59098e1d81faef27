// Package segmentation groups guidance-image pixels into compact superpixels
// and fits robust disparity planes to them, the fill units of the pipeline's
// plane-fill stage.
package segmentation

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/depthward/stereodepth/raster"
	"github.com/depthward/stereodepth/utils"
)

// SuperpixelConfig controls the size and shape of the segmentation.
type SuperpixelConfig struct {
	// TargetSize is the rough side length of a superpixel in pixels.
	TargetSize int `json:"target_size"`
	// Compactness trades color similarity against spatial regularity.
	Compactness float64 `json:"compactness"`
	// Iterations bounds the assignment/update loop.
	Iterations int `json:"iterations"`
}

// Superpixels is a partition of all pixel coordinates into disjoint labeled
// regions. Computed once per guidance image and read-only afterward.
type Superpixels struct {
	width, height int
	labels        []int
	count         int
}

// Width returns the horizontal size.
func (s *Superpixels) Width() int {
	return s.width
}

// Height returns the vertical size.
func (s *Superpixels) Height() int {
	return s.height
}

// Label returns the region id of the pixel at (x, y).
func (s *Superpixels) Label(x, y int) int {
	return s.labels[y*s.width+x]
}

// Count returns the number of regions.
func (s *Superpixels) Count() int {
	return s.count
}

// Regions returns the pixels of every region, indexed by label.
func (s *Superpixels) Regions() [][]image.Point {
	regions := make([][]image.Point, s.count)
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			l := s.labels[y*s.width+x]
			regions[l] = append(regions[l], image.Point{x, y})
		}
	}
	return regions
}

// NewSuperpixelsFromLabels wraps an externally computed label map. Labels
// must lie in [0, count).
func NewSuperpixelsFromLabels(width, height, count int, labels []int) (*Superpixels, error) {
	if len(labels) != width*height {
		return nil, errors.Errorf("expected %d labels, got %d", width*height, len(labels))
	}
	for i, l := range labels {
		if l < 0 || l >= count {
			return nil, errors.Errorf("label %d at index %d out of range [0,%d)", l, i, count)
		}
	}
	return &Superpixels{width: width, height: height, labels: labels, count: count}, nil
}

type slicCenter struct {
	x, y    float64
	l, a, b float64
}

// SegmentSuperpixels clusters the guidance image into compact superpixels of
// roughly TargetSize x TargetSize pixels. Cluster centers are seeded on a
// regular grid, nudged off strong gradients, then iteratively refined with a
// combined Lab-color and spatial distance confined to a local window. A final
// connectivity pass absorbs stray fragments into an adjacent region.
func SegmentSuperpixels(img *raster.Image, cfg SuperpixelConfig) (*Superpixels, error) {
	width, height := img.Width(), img.Height()
	step := cfg.TargetSize
	if step < 2 {
		return nil, errors.Errorf("superpixel target size must be at least 2, got %d", step)
	}
	if step > width || step > height {
		return nil, errors.Errorf("superpixel target size %d exceeds image size (%d,%d)", step, width, height)
	}
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = 10
	}

	labL := make([]float64, width*height)
	labA := make([]float64, width*height)
	labB := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := img.GetXY(x, y)
			cl := colorful.Color{R: float64(c.R) / 255., G: float64(c.G) / 255., B: float64(c.B) / 255.}
			l, a, b := cl.Lab()
			labL[y*width+x] = l
			labA[y*width+x] = a
			labB[y*width+x] = b
		}
	}

	grad := raster.SobelColorGradient(img)
	centers := seedCenters(img, &grad, labL, labA, labB, step)

	labels := make([]int, width*height)
	dists := make([]float64, width*height)
	for i := range labels {
		labels[i] = -1
	}

	// relative weight of the spatial term
	spatialScale := cfg.Compactness / float64(step)

	for iter := 0; iter < iterations; iter++ {
		assignToCenters(centers, labL, labA, labB, width, height, step, spatialScale, labels, dists)

		// recompute each center as the mean of its members
		sums := make([]struct {
			x, y, l, a, b float64
			n             int
		}, len(centers))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				k := y*width + x
				ci := labels[k]
				if ci < 0 {
					continue
				}
				sums[ci].x += float64(x)
				sums[ci].y += float64(y)
				sums[ci].l += labL[k]
				sums[ci].a += labA[k]
				sums[ci].b += labB[k]
				sums[ci].n++
			}
		}
		for ci := range centers {
			if sums[ci].n == 0 {
				continue
			}
			n := float64(sums[ci].n)
			centers[ci] = slicCenter{
				x: sums[ci].x / n, y: sums[ci].y / n,
				l: sums[ci].l / n, a: sums[ci].a / n, b: sums[ci].b / n,
			}
		}
	}

	sp := &Superpixels{width: width, height: height, labels: labels, count: len(centers)}
	sp.enforceConnectivity(step * step / 4)
	return sp, nil
}

// assignToCenters runs one assignment sweep: every pixel in a center's local
// window takes the label of whichever center minimizes the combined Lab-color
// and spatial distance. Distances restart every sweep so pixels can follow
// moving centers.
func assignToCenters(centers []slicCenter, labL, labA, labB []float64, width, height, step int, spatialScale float64, labels []int, dists []float64) {
	for i := range dists {
		dists[i] = math.Inf(1)
	}
	for ci, c := range centers {
		x0 := utils.MaxInt(0, int(c.x)-step)
		x1 := utils.MinInt(width-1, int(c.x)+step)
		y0 := utils.MaxInt(0, int(c.y)-step)
		y1 := utils.MinInt(height-1, int(c.y)+step)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				k := y*width + x
				dl := labL[k] - c.l
				da := labA[k] - c.a
				db := labB[k] - c.b
				colorDist := math.Sqrt(dl*dl + da*da + db*db)
				dx := float64(x) - c.x
				dy := float64(y) - c.y
				spatialDist := math.Sqrt(dx*dx + dy*dy)
				d := colorDist + spatialScale*spatialDist
				if d < dists[k] {
					dists[k] = d
					labels[k] = ci
				}
			}
		}
	}
}

// seedCenters places cluster centers on a regular grid and nudges each to the
// lowest-gradient pixel in its 3x3 neighborhood so seeds avoid edges.
func seedCenters(img *raster.Image, grad *raster.VectorField2D, labL, labA, labB []float64, step int) []slicCenter {
	width, height := img.Width(), img.Height()
	centers := make([]slicCenter, 0, (width/step+1)*(height/step+1))
	for y := step / 2; y < height; y += step {
		for x := step / 2; x < width; x += step {
			bx, by := x, y
			best := grad.GetVec2D(x, y).Magnitude()
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if !img.In(x+dx, y+dy) {
						continue
					}
					if m := grad.GetVec2D(x+dx, y+dy).Magnitude(); m < best {
						best = m
						bx, by = x+dx, y+dy
					}
				}
			}
			k := by*width + bx
			centers = append(centers, slicCenter{
				x: float64(bx), y: float64(by),
				l: labL[k], a: labA[k], b: labB[k],
			})
		}
	}
	return centers
}

var fourConnected = []image.Point{{0, 1}, {0, -1}, {-1, 0}, {1, 0}}

// enforceConnectivity relabels connected components smaller than minSize to
// the label of an adjacent component, so every region is contiguous-ish.
func (s *Superpixels) enforceConnectivity(minSize int) {
	visited := make([]bool, len(s.labels))
	for start := range s.labels {
		if visited[start] {
			continue
		}
		component := []int{start}
		visited[start] = true
		label := s.labels[start]
		adjacent := -1
		for qi := 0; qi < len(component); qi++ {
			k := component[qi]
			x, y := k%s.width, k/s.width
			for _, dir := range fourConnected {
				nx, ny := x+dir.X, y+dir.Y
				if nx < 0 || ny < 0 || nx >= s.width || ny >= s.height {
					continue
				}
				nk := ny*s.width + nx
				if s.labels[nk] != label {
					adjacent = s.labels[nk]
					continue
				}
				if !visited[nk] {
					visited[nk] = true
					component = append(component, nk)
				}
			}
		}
		if len(component) < minSize && adjacent >= 0 {
			for _, k := range component {
				s.labels[k] = adjacent
			}
		}
	}
}
