package stereo

import (
	"fmt"
	"io"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/depthward/stereodepth/calib"
	"github.com/depthward/stereodepth/raster"
)

// PointField is a grid of 3D points in meters, one per rectified pixel.
// Pixels whose disparity was never recovered, or whose disparity is
// non-positive, hold an explicit no-depth sentinel instead of a fabricated
// coordinate. A PointField is immutable once returned and safe for
// concurrent reads.
type PointField struct {
	width, height int
	points        []r3.Vector
	valid         []bool
}

// Width returns the horizontal size.
func (pf *PointField) Width() int {
	return pf.width
}

// Height returns the vertical size.
func (pf *PointField) Height() int {
	return pf.height
}

// In returns whether (x, y) lies within the field bounds.
func (pf *PointField) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < pf.width && y < pf.height
}

// At returns the 3D point at pixel (x, y) and whether it carries depth.
func (pf *PointField) At(x, y int) (r3.Vector, bool) {
	k := y*pf.width + x
	return pf.points[k], pf.valid[k]
}

// Reproject converts the final disparity field to a metric point field using
// the calibration reprojection matrix Q: (x, y, d, 1) homogeneous to a 3D
// point in meters. Pure: identical inputs yield identical output.
func Reproject(df *raster.DisparityField, q *mat.Dense) (*PointField, error) {
	rows, cols := q.Dims()
	if rows != 4 || cols != 4 {
		return nil, calib.NewConfigurationError("q_matrix", "expected 4x4, got %dx%d", rows, cols)
	}
	width, height := df.Width(), df.Height()
	pf := &PointField{
		width:  width,
		height: height,
		points: make([]r3.Vector, width*height),
		valid:  make([]bool, width*height),
	}
	in := mat.NewVecDense(4, nil)
	var out mat.VecDense
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !df.IsValid(x, y) {
				continue
			}
			d := float64(df.Get(x, y))
			if d <= 0 {
				continue
			}
			in.SetVec(0, float64(x))
			in.SetVec(1, float64(y))
			in.SetVec(2, d)
			in.SetVec(3, 1)
			out.MulVec(q, in)
			w := out.AtVec(3)
			if math.Abs(w) < 1e-12 {
				continue
			}
			k := y*width + x
			pf.points[k] = r3.Vector{
				X: out.AtVec(0) / w,
				Y: out.AtVec(1) / w,
				Z: out.AtVec(2) / w,
			}
			pf.valid[k] = true
		}
	}
	return pf, nil
}

// ToDepthMap derives the millimeter depth image for export, clamped to maxMM
// to avoid overflow. Sentinel pixels stay 0.
func (pf *PointField) ToDepthMap(maxMM uint16) *raster.DepthMap {
	dm := raster.NewEmptyDepthMap(pf.width, pf.height)
	for y := 0; y < pf.height; y++ {
		for x := 0; x < pf.width; x++ {
			pt, ok := pf.At(x, y)
			if !ok || pt.Z <= 0 {
				continue
			}
			mm := pt.Z * 1000.0
			if mm > float64(maxMM) {
				mm = float64(maxMM)
			}
			if mm < 1 {
				mm = 1
			}
			dm.Set(x, y, uint16(mm))
		}
	}
	return dm
}

// ToPCD writes the point field as an ASCII PCD file, colored from the
// rectified guidance image when one is given.
func (pf *PointField) ToPCD(out io.Writer, img *raster.Image) error {
	if img != nil && (img.Width() != pf.width || img.Height() != pf.height) {
		return fmt.Errorf("point field and color dimensions don't match %d,%d -> %d,%d",
			pf.width, pf.height, img.Width(), img.Height())
	}
	count := 0
	for _, ok := range pf.valid {
		if ok {
			count++
		}
	}

	fields, size, types, counts := "x y z", "4 4 4", "F F F", "1 1 1"
	if img != nil {
		fields, size, types, counts = "x y z rgb", "4 4 4 4", "F F F I", "1 1 1 1"
	}
	_, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS %s\n"+
		"SIZE %s\n"+
		"TYPE %s\n"+
		"COUNT %s\n"+
		"WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA ascii\n",
		fields, size, types, counts, count, 1, count)
	if err != nil {
		return err
	}

	for y := 0; y < pf.height; y++ {
		for x := 0; x < pf.width; x++ {
			pt, ok := pf.At(x, y)
			if !ok {
				continue
			}
			if img == nil {
				_, err = fmt.Fprintf(out, "%f %f %f\n", pt.X, pt.Y, pt.Z)
			} else {
				c := img.GetXY(x, y)
				rgb := (int(c.R) << 16) | (int(c.G) << 8) | int(c.B)
				_, err = fmt.Fprintf(out, "%f %f %f %d\n", pt.X, pt.Y, pt.Z, rgb)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
