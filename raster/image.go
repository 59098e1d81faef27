// Package raster implements the per-pixel field types the stereo pipeline
// passes between stages: guidance images, disparity fields with validity,
// confidence fields, and millimeter depth maps. Each stage consumes immutable
// inputs and produces a fresh output field.
package raster

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an 8-bit RGB sample.
type Color struct {
	R, G, B uint8
}

// NewColorFromColor converts a stdlib color to a Color.
func NewColorFromColor(c color.Color) Color {
	r, g, b, _ := c.RGBA()
	return Color{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
}

// RGBA implements color.Color.
func (c Color) RGBA() (uint32, uint32, uint32, uint32) {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}.RGBA()
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// DistanceLab returns the perceptual distance between two colors in Lab
// space. 0.0 is the same color, >= 1.0 is extremely different.
func (c Color) DistanceLab(other Color) float64 {
	return c.colorful().DistanceLab(other.colorful())
}

// Luminance returns the relative luminance of the color in [0, 255].
func Luminance(c Color) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

// Image is a fixed-size RGB pixel grid. Images are never mutated once another
// stage has read them; rectification and cropping allocate new images.
type Image struct {
	width, height int
	data          []Color
}

// NewImage returns a black image of the given size.
func NewImage(width, height int) *Image {
	return &Image{width: width, height: height, data: make([]Color, width*height)}
}

// ConvertImage copies any stdlib image into an Image.
func ConvertImage(img image.Image) *Image {
	if ours, ok := img.(*Image); ok {
		return ours
	}
	bounds := img.Bounds()
	out := NewImage(bounds.Dx(), bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.SetXY(x-bounds.Min.X, y-bounds.Min.Y, NewColorFromColor(img.At(x, y)))
		}
	}
	return out
}

func (i *Image) kxy(x, y int) int {
	return (y * i.width) + x
}

// Width returns the horizontal size.
func (i *Image) Width() int {
	return i.width
}

// Height returns the vertical size.
func (i *Image) Height() int {
	return i.height
}

// In returns whether (x, y) lies within the image bounds.
func (i *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < i.width && y < i.height
}

// GetXY returns the color at (x, y).
func (i *Image) GetXY(x, y int) Color {
	return i.data[i.kxy(x, y)]
}

// Get returns the color at p.
func (i *Image) Get(p image.Point) Color {
	return i.data[i.kxy(p.X, p.Y)]
}

// SetXY sets the color at (x, y).
func (i *Image) SetXY(x, y int, c Color) {
	i.data[i.kxy(x, y)] = c
}

// SubImage copies the given rectangle into a new image. The rectangle is
// clipped to the image bounds.
func (i *Image) SubImage(r image.Rectangle) *Image {
	r = r.Intersect(i.Bounds())
	out := NewImage(r.Dx(), r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			out.SetXY(x-r.Min.X, y-r.Min.Y, i.GetXY(x, y))
		}
	}
	return out
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	c := i.GetXY(x, y)
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}
