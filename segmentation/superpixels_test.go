package segmentation

import (
	"math/rand"
	"testing"

	"go.viam.com/test"

	"github.com/depthward/stereodepth/raster"
)

func randomImage(width, height int, seed int64) *raster.Image {
	r := rand.New(rand.NewSource(seed))
	img := raster.NewImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetXY(x, y, raster.Color{
				R: uint8(r.Intn(256)),
				G: uint8(r.Intn(256)),
				B: uint8(r.Intn(256)),
			})
		}
	}
	return img
}

func TestSegmentSuperpixelsPartition(t *testing.T) {
	width, height := 64, 48
	img := randomImage(width, height, 5)
	sp, err := SegmentSuperpixels(img, SuperpixelConfig{TargetSize: 8, Compactness: 10, Iterations: 5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sp.Width(), test.ShouldEqual, width)
	test.That(t, sp.Height(), test.ShouldEqual, height)
	test.That(t, sp.Count(), test.ShouldBeGreaterThan, 0)

	// every pixel belongs to exactly one labeled region
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			l := sp.Label(x, y)
			test.That(t, l, test.ShouldBeGreaterThanOrEqualTo, 0)
			test.That(t, l, test.ShouldBeLessThan, sp.Count())
		}
	}
	total := 0
	for _, region := range sp.Regions() {
		total += len(region)
	}
	test.That(t, total, test.ShouldEqual, width*height)
}

func TestSegmentSuperpixelsTwoTone(t *testing.T) {
	// a hard color boundary should separate regions: no region may span both
	// halves by more than a sliver
	width, height := 64, 32
	img := raster.NewImage(width, height)
	for y := 0; y < height; y++ {
		for x := width / 2; x < width; x++ {
			img.SetXY(x, y, raster.Color{R: 255, G: 255, B: 255})
		}
	}
	sp, err := SegmentSuperpixels(img, SuperpixelConfig{TargetSize: 8, Compactness: 10, Iterations: 10})
	test.That(t, err, test.ShouldBeNil)

	crossing := 0
	for _, region := range sp.Regions() {
		left, right := 0, 0
		for _, p := range region {
			if p.X < width/2 {
				left++
			} else {
				right++
			}
		}
		if left > 0 && right > 0 {
			crossing++
		}
	}
	test.That(t, crossing, test.ShouldBeLessThan, sp.Count()/2)
}

func TestAssignToCentersFollowsMovedCenters(t *testing.T) {
	width, height, step := 9, 4, 4
	labL := make([]float64, width*height)
	labA := make([]float64, width*height)
	labB := make([]float64, width*height)
	labels := make([]int, width*height)
	dists := make([]float64, width*height)

	centers := []slicCenter{{x: 2, y: 2}, {x: 6, y: 2}}
	assignToCenters(centers, labL, labA, labB, width, height, step, 1, labels, dists)
	test.That(t, labels[2*width+0], test.ShouldEqual, 0)
	test.That(t, labels[2*width+8], test.ShouldEqual, 1)

	// on a uniform image assignment is purely spatial, so after the centers
	// trade places every pixel must trade labels with them
	centers[0], centers[1] = centers[1], centers[0]
	assignToCenters(centers, labL, labA, labB, width, height, step, 1, labels, dists)
	test.That(t, labels[2*width+0], test.ShouldEqual, 1)
	test.That(t, labels[2*width+8], test.ShouldEqual, 0)
}

func TestSegmentSuperpixelsBadConfig(t *testing.T) {
	img := randomImage(16, 16, 1)
	_, err := SegmentSuperpixels(img, SuperpixelConfig{TargetSize: 1})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least 2")

	_, err = SegmentSuperpixels(img, SuperpixelConfig{TargetSize: 32})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "exceeds image size")
}

func TestNewSuperpixelsFromLabels(t *testing.T) {
	labels := []int{0, 0, 1, 1, 0, 0, 1, 1}
	sp, err := NewSuperpixelsFromLabels(4, 2, 2, labels)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sp.Label(2, 0), test.ShouldEqual, 1)
	test.That(t, len(sp.Regions()[0]), test.ShouldEqual, 4)

	_, err = NewSuperpixelsFromLabels(4, 2, 2, labels[:5])
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewSuperpixelsFromLabels(4, 2, 1, labels)
	test.That(t, err, test.ShouldNotBeNil)
}
