package raster

import (
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vec2D represents the gradient of an image at a point.
// The gradient has both a magnitude and direction.
// Magnitude has values (0, infinity) and direction is [0, 2pi).
type Vec2D struct {
	magnitude float64
	direction float64
}

// Magnitude returns the magnitude of the gradient.
func (g Vec2D) Magnitude() float64 {
	return g.magnitude
}

// Direction returns the direction of the gradient.
func (g Vec2D) Direction() float64 {
	return g.direction
}

// VectorField2D stores all the gradient vectors of an image,
// allowing one to retrieve the gradient for any given (x,y) point.
type VectorField2D struct {
	width, height int
	data          []Vec2D
	maxMagnitude  float64
}

// MakeEmptyVectorField2D returns a zeroed field of the given size.
func MakeEmptyVectorField2D(width, height int) VectorField2D {
	return VectorField2D{width: width, height: height, data: make([]Vec2D, width*height)}
}

func (vf *VectorField2D) kxy(x, y int) int {
	return (y * vf.width) + x
}

// Width returns the horizontal size.
func (vf *VectorField2D) Width() int {
	return vf.width
}

// Height returns the vertical size.
func (vf *VectorField2D) Height() int {
	return vf.height
}

// GetVec2D returns the gradient at (x, y).
func (vf *VectorField2D) GetVec2D(x, y int) Vec2D {
	return vf.data[vf.kxy(x, y)]
}

// Set stores the gradient at (x, y).
func (vf *VectorField2D) Set(x, y int, val Vec2D) {
	vf.data[vf.kxy(x, y)] = val
	vf.maxMagnitude = math.Max(math.Abs(val.Magnitude()), vf.maxMagnitude)
}

// MaxMagnitude returns the largest gradient magnitude in the field.
func (vf *VectorField2D) MaxMagnitude() float64 {
	return vf.maxMagnitude
}

// MagnitudeField returns all the magnitudes of the gradient as a mat.Dense.
func (vf *VectorField2D) MagnitudeField() *mat.Dense {
	mag := make([]float64, 0, vf.height*vf.width)
	for y := 0; y < vf.height; y++ {
		for x := 0; x < vf.width; x++ {
			mag = append(mag, vf.GetVec2D(x, y).Magnitude())
		}
	}
	return mat.NewDense(vf.height, vf.width, mag)
}

var (
	sobelX = [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

func getMagnitudeAndDirection(x, y float64) (float64, float64) {
	mag := math.Sqrt(x*x + y*y)
	// make the angle be between [0, 2pi) rather than [-pi, pi)
	dir := math.Atan2(y, x)
	if dir < 0. {
		dir += 2. * math.Pi
	}
	return mag, dir
}

// SobelColorGradient approximates the luminance gradient of the image at
// every pixel with a 3x3 Sobel filter and returns the resulting vector field.
func SobelColorGradient(img *Image) VectorField2D {
	width, height := img.Width(), img.Height()
	vf := MakeEmptyVectorField2D(width, height)
	offsets := [3]int{-1, 0, 1}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sX, sY := 0.0, 0.0
			for i, dx := range offsets {
				for j, dy := range offsets {
					if !img.In(x+dx, y+dy) {
						continue
					}
					c := Luminance(img.GetXY(x+dx, y+dy))
					// rows are height j, columns are width i
					sX += sobelX[j][i] * c
					sY += sobelY[j][i] * c
				}
			}
			mag, dir := getMagnitudeAndDirection(sX, sY)
			vf.Set(x, y, Vec2D{mag, dir})
		}
	}
	return vf
}

// EdgeStrengthMap normalizes the Sobel gradient magnitudes of the image into
// a per-pixel edge strength in [0, 1].
func EdgeStrengthMap(img *Image) []float64 {
	vf := SobelColorGradient(img)
	out := make([]float64, img.Width()*img.Height())
	if vf.maxMagnitude == 0 {
		return out
	}
	for y := 0; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			out[y*img.Width()+x] = vf.GetVec2D(x, y).Magnitude() / vf.maxMagnitude
		}
	}
	return out
}

// ToPrettyPicture creates a grayscale picture of the gradient magnitudes.
func (vf *VectorField2D) ToPrettyPicture() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, vf.width, vf.height))
	if vf.maxMagnitude == 0 {
		return img
	}
	for y := 0; y < vf.height; y++ {
		for x := 0; x < vf.width; x++ {
			val := uint8((vf.GetVec2D(x, y).Magnitude() / vf.maxMagnitude) * 255)
			img.Pix[img.PixOffset(x, y)] = val
		}
	}
	return img
}
