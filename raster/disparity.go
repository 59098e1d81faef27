package raster

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Validity records how a disparity sample was produced.
type Validity uint8

const (
	// Invalid marks a pixel with no recovered disparity.
	Invalid Validity = iota
	// Matched marks a disparity produced directly by block matching.
	Matched
	// Filled marks a disparity reconstructed from neighbors or a fitted plane.
	Filled
)

// DisparityField is a grid of signed horizontal pixel offsets between the
// rectified left and right images, with a per-pixel validity state. Stages
// never mutate a field another stage has read; derive a new one with Clone.
type DisparityField struct {
	width, height int
	data          []float32
	valid         []Validity
}

// NewDisparityField returns a field of the given size with every pixel Invalid.
func NewDisparityField(width, height int) *DisparityField {
	return &DisparityField{
		width:  width,
		height: height,
		data:   make([]float32, width*height),
		valid:  make([]Validity, width*height),
	}
}

func (df *DisparityField) kxy(x, y int) int {
	return (y * df.width) + x
}

// Width returns the horizontal size.
func (df *DisparityField) Width() int {
	return df.width
}

// Height returns the vertical size.
func (df *DisparityField) Height() int {
	return df.height
}

// In returns whether (x, y) lies within the field bounds.
func (df *DisparityField) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < df.width && y < df.height
}

// Get returns the disparity at (x, y). Only meaningful when the pixel is valid.
func (df *DisparityField) Get(x, y int) float32 {
	return df.data[df.kxy(x, y)]
}

// Validity returns the validity state at (x, y).
func (df *DisparityField) Validity(x, y int) Validity {
	return df.valid[df.kxy(x, y)]
}

// IsValid returns whether the pixel holds a usable disparity, matched or filled.
func (df *DisparityField) IsValid(x, y int) bool {
	return df.valid[df.kxy(x, y)] != Invalid
}

// Set stores a disparity and its validity at (x, y).
func (df *DisparityField) Set(x, y int, d float32, v Validity) {
	k := df.kxy(x, y)
	df.data[k] = d
	df.valid[k] = v
}

// Invalidate marks the pixel at (x, y) as having no disparity.
func (df *DisparityField) Invalidate(x, y int) {
	k := df.kxy(x, y)
	df.data[k] = 0
	df.valid[k] = Invalid
}

// Clone returns a deep copy of the field.
func (df *DisparityField) Clone() *DisparityField {
	out := NewDisparityField(df.width, df.height)
	copy(out.data, df.data)
	copy(out.valid, df.valid)
	return out
}

// ValidCount returns the number of matched or filled pixels.
func (df *DisparityField) ValidCount() int {
	n := 0
	for _, v := range df.valid {
		if v != Invalid {
			n++
		}
	}
	return n
}

// MinMax returns the smallest and largest valid disparities. Returns (0, 0)
// when the field holds no valid pixels.
func (df *DisparityField) MinMax() (float32, float32) {
	min := float32(math.Inf(1))
	max := float32(math.Inf(-1))
	found := false
	for k, v := range df.valid {
		if v == Invalid {
			continue
		}
		found = true
		d := df.data[k]
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	if !found {
		return 0, 0
	}
	return min, max
}

// CheckSameSize returns an error naming the field when other dimensions do
// not match, so consumers fail rather than silently truncate.
func (df *DisparityField) CheckSameSize(width, height int, what string) error {
	if df.width != width || df.height != height {
		return errors.Errorf("%s dimensions (%d,%d) do not match expected (%d,%d)",
			what, df.width, df.height, width, height)
	}
	return nil
}

// ToPrettyPicture renders the field as a hue ramp for visual inspection.
// Invalid pixels stay black.
func (df *DisparityField) ToPrettyPicture() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, df.width, df.height))
	min, max := df.MinMax()
	span := float64(max) - float64(min)
	if span <= 0 {
		span = 1
	}
	for y := 0; y < df.height; y++ {
		for x := 0; x < df.width; x++ {
			if !df.IsValid(x, y) {
				continue
			}
			ratio := (float64(df.Get(x, y)) - float64(min)) / span
			hue := 30 + (200.0 * ratio)
			img.Set(x, y, colorful.Hsv(hue, 1.0, 1.0))
		}
	}
	return img
}
