package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// twoToneImage is black on the left half, white on the right.
func twoToneImage(width, height int) *Image {
	img := NewImage(width, height)
	for y := 0; y < height; y++ {
		for x := width / 2; x < width; x++ {
			img.SetXY(x, y, Color{255, 255, 255})
		}
	}
	return img
}

func TestSobelColorGradient(t *testing.T) {
	width, height := 20, 10
	img := twoToneImage(width, height)
	vf := SobelColorGradient(img)
	assert.Equal(t, width, vf.Width())
	assert.Equal(t, height, vf.Height())
	assert.Greater(t, vf.MaxMagnitude(), 0.0)

	// flat interior regions carry no gradient
	assert.Equal(t, 0.0, vf.GetVec2D(4, 5).Magnitude())
	assert.Equal(t, 0.0, vf.GetVec2D(15, 5).Magnitude())
	// the tone boundary does
	assert.Greater(t, vf.GetVec2D(width/2, 5).Magnitude(), 0.0)

	rows, cols := vf.MagnitudeField().Dims()
	assert.Equal(t, height, rows)
	assert.Equal(t, width, cols)
}

func TestEdgeStrengthMap(t *testing.T) {
	width, height := 20, 10
	img := twoToneImage(width, height)
	edges := EdgeStrengthMap(img)
	assert.Len(t, edges, width*height)

	maxSeen := 0.0
	for _, e := range edges {
		assert.GreaterOrEqual(t, e, 0.0)
		assert.LessOrEqual(t, e, 1.0)
		if e > maxSeen {
			maxSeen = e
		}
	}
	assert.Equal(t, 1.0, maxSeen)
	// the interior of each tone stays flat
	assert.Equal(t, 0.0, edges[5*width+4])
}

func TestEdgeStrengthMapUniform(t *testing.T) {
	img := NewImage(8, 8)
	edges := EdgeStrengthMap(img)
	for _, e := range edges {
		assert.Equal(t, 0.0, e)
	}
}
