// Package calib holds the calibration parameter set consumed by the stereo
// pipeline. Calibration itself (corner detection, the calibration solve) is
// an external collaborator; this package loads its exported parameters once
// per rig and treats them as immutable configuration.
package calib

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ConfigurationError reports a malformed or mismatched calibration parameter.
// It is fatal for the pair being processed and names the offending field.
type ConfigurationError struct {
	Field string
	msg   string
}

// NewConfigurationError returns a ConfigurationError for the named field.
func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, msg: fmt.Sprintf(format, args...)}
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("calibration field %q: %s", e.Field, e.msg)
}

// PinholeIntrinsics holds the parameters necessary to project between the
// 3D scene and the 2D image plane of one camera.
type PinholeIntrinsics struct {
	Width  int     `json:"width_px" yaml:"width_px"`
	Height int     `json:"height_px" yaml:"height_px"`
	Fx     float64 `json:"fx" yaml:"fx"`
	Fy     float64 `json:"fy" yaml:"fy"`
	Ppx    float64 `json:"ppx" yaml:"ppx"`
	Ppy    float64 `json:"ppy" yaml:"ppy"`
}

// CheckValid checks if the fields for PinholeIntrinsics have valid inputs.
func (p *PinholeIntrinsics) CheckValid(camera string) error {
	if p.Width <= 0 || p.Height <= 0 {
		return NewConfigurationError(camera+".size", "invalid size (%d, %d)", p.Width, p.Height)
	}
	if p.Fx <= 0 {
		return NewConfigurationError(camera+".fx", "invalid focal length %v", p.Fx)
	}
	if p.Fy <= 0 {
		return NewConfigurationError(camera+".fy", "invalid focal length %v", p.Fy)
	}
	if p.Ppx < 0 {
		return NewConfigurationError(camera+".ppx", "invalid principal point %v", p.Ppx)
	}
	if p.Ppy < 0 {
		return NewConfigurationError(camera+".ppy", "invalid principal point %v", p.Ppy)
	}
	return nil
}

// CameraParams bundles one camera's intrinsics with its distortion
// coefficients.
type CameraParams struct {
	Intrinsics PinholeIntrinsics `json:"intrinsic_parameters" yaml:"intrinsic_parameters"`
	Distortion []float64         `json:"distortion_coefficients" yaml:"distortion_coefficients"`
}

// StereoExtrinsics is the rigid transform between the two cameras.
type StereoExtrinsics struct {
	// Rotation is a row-major 3x3 matrix.
	Rotation []float64 `json:"rotation" yaml:"rotation"`
	// Translation is in meters.
	Translation []float64 `json:"translation" yaml:"translation"`
}

// CheckValid checks the shapes of the extrinsic matrices.
func (e *StereoExtrinsics) CheckValid() error {
	if len(e.Rotation) != 9 {
		return NewConfigurationError("extrinsics.rotation", "expected 9 elements, got %d", len(e.Rotation))
	}
	if len(e.Translation) != 3 {
		return NewConfigurationError("extrinsics.translation", "expected 3 elements, got %d", len(e.Translation))
	}
	return nil
}

// ROI is a region-of-interest crop in rectified image coordinates.
type ROI struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// RemapTable is the precomputed per-pixel mapping used for rectification:
// destination pixel (x, y) samples the source image at
// (MapX[y*Width+x], MapY[y*Width+x]) with bilinear interpolation.
type RemapTable struct {
	Width  int       `json:"width" yaml:"width"`
	Height int       `json:"height" yaml:"height"`
	MapX   []float32 `json:"map_x" yaml:"map_x"`
	MapY   []float32 `json:"map_y" yaml:"map_y"`
}

// CheckValid checks the remap arrays against the declared table size.
func (rt *RemapTable) CheckValid(name string) error {
	if rt.Width <= 0 || rt.Height <= 0 {
		return NewConfigurationError(name+".size", "invalid size (%d, %d)", rt.Width, rt.Height)
	}
	if len(rt.MapX) != rt.Width*rt.Height {
		return NewConfigurationError(name+".map_x", "expected %d entries, got %d", rt.Width*rt.Height, len(rt.MapX))
	}
	if len(rt.MapY) != rt.Width*rt.Height {
		return NewConfigurationError(name+".map_y", "expected %d entries, got %d", rt.Width*rt.Height, len(rt.MapY))
	}
	return nil
}

// NewIdentityRemapTable returns a remap table that leaves the image
// unchanged, for already-rectified rigs and synthetic tests.
func NewIdentityRemapTable(width, height int) RemapTable {
	rt := RemapTable{
		Width:  width,
		Height: height,
		MapX:   make([]float32, width*height),
		MapY:   make([]float32, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			rt.MapX[y*width+x] = float32(x)
			rt.MapY[y*width+x] = float32(y)
		}
	}
	return rt
}

// StereoParams is the full calibration parameter set for a stereo rig, loaded
// once and treated as immutable afterwards.
type StereoParams struct {
	Left       CameraParams     `json:"left" yaml:"left"`
	Right      CameraParams     `json:"right" yaml:"right"`
	Extrinsics StereoExtrinsics `json:"extrinsics" yaml:"extrinsics"`
	LeftMap    RemapTable       `json:"left_map" yaml:"left_map"`
	RightMap   RemapTable       `json:"right_map" yaml:"right_map"`
	LeftROI    *ROI             `json:"left_roi,omitempty" yaml:"left_roi,omitempty"`
	RightROI   *ROI             `json:"right_roi,omitempty" yaml:"right_roi,omitempty"`
	// Reprojection is the row-major 4x4 matrix Q mapping homogeneous
	// (x, y, disparity, 1) to a homogeneous 3D point in meters.
	Reprojection []float64 `json:"q_matrix" yaml:"q_matrix"`
}

// CheckValid checks every field of the parameter set, naming the offending
// one on failure.
func (sp *StereoParams) CheckValid() error {
	if sp == nil {
		return NewConfigurationError("stereo_params", "parameters do not exist")
	}
	if err := sp.Left.Intrinsics.CheckValid("left"); err != nil {
		return err
	}
	if err := sp.Right.Intrinsics.CheckValid("right"); err != nil {
		return err
	}
	if err := sp.Extrinsics.CheckValid(); err != nil {
		return err
	}
	if err := sp.LeftMap.CheckValid("left_map"); err != nil {
		return err
	}
	if err := sp.RightMap.CheckValid("right_map"); err != nil {
		return err
	}
	if len(sp.Reprojection) != 16 {
		return NewConfigurationError("q_matrix", "expected 16 elements, got %d", len(sp.Reprojection))
	}
	return nil
}

// QMatrix returns the 4x4 reprojection matrix.
func (sp *StereoParams) QMatrix() *mat.Dense {
	return mat.NewDense(4, 4, sp.Reprojection)
}

// Baseline returns the distance between the two camera centers in meters.
func (sp *StereoParams) Baseline() float64 {
	t := sp.Extrinsics.Translation
	return math.Sqrt(t[0]*t[0] + t[1]*t[1] + t[2]*t[2])
}

// NewIdealStereoParams builds the parameter set of an ideal fronto-parallel
// rig: identical pinhole cameras, no distortion, identity remap tables, and a
// Q matrix satisfying Z = fx * baseline / disparity. Used by synthetic tests
// and rigs whose images arrive already rectified.
func NewIdealStereoParams(width, height int, fx, baselineMeters float64) *StereoParams {
	cx := float64(width) / 2.0
	cy := float64(height) / 2.0
	intr := PinholeIntrinsics{Width: width, Height: height, Fx: fx, Fy: fx, Ppx: cx, Ppy: cy}
	cam := CameraParams{Intrinsics: intr, Distortion: []float64{0, 0, 0, 0, 0}}
	return &StereoParams{
		Left:  cam,
		Right: cam,
		Extrinsics: StereoExtrinsics{
			Rotation:    []float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
			Translation: []float64{baselineMeters, 0, 0},
		},
		LeftMap:  NewIdentityRemapTable(width, height),
		RightMap: NewIdentityRemapTable(width, height),
		Reprojection: []float64{
			1, 0, 0, -cx,
			0, 1, 0, -cy,
			0, 0, 0, fx,
			0, 0, 1 / baselineMeters, 0,
		},
	}
}
