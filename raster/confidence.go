package raster

import "github.com/pkg/errors"

// ConfidenceField is a grid of per-pixel trust scores in [0, 1] for a
// matching DisparityField. Only the fusion and plane-fill stages consume it.
type ConfidenceField struct {
	width, height int
	data          []float64
}

// NewConfidenceField returns a zeroed confidence field.
func NewConfidenceField(width, height int) *ConfidenceField {
	return &ConfidenceField{width: width, height: height, data: make([]float64, width*height)}
}

// Width returns the horizontal size.
func (cf *ConfidenceField) Width() int {
	return cf.width
}

// Height returns the vertical size.
func (cf *ConfidenceField) Height() int {
	return cf.height
}

// Get returns the confidence at (x, y).
func (cf *ConfidenceField) Get(x, y int) float64 {
	return cf.data[(y*cf.width)+x]
}

// Set stores a confidence at (x, y), clamped to [0, 1].
func (cf *ConfidenceField) Set(x, y int, c float64) {
	if c < 0 {
		c = 0
	} else if c > 1 {
		c = 1
	}
	cf.data[(y*cf.width)+x] = c
}

// CheckSameSize errors if the field is not exactly width x height.
func (cf *ConfidenceField) CheckSameSize(width, height int, what string) error {
	if cf.width != width || cf.height != height {
		return errors.Errorf("%s dimensions (%d,%d) do not match expected (%d,%d)",
			what, cf.width, cf.height, width, height)
	}
	return nil
}
