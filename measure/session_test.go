package measure

import (
	"bytes"
	"encoding/json"
	"image"
	"testing"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/depthward/stereodepth/calib"
	"github.com/depthward/stereodepth/raster"
	"github.com/depthward/stereodepth/stereo"
)

// flatScene reprojects a constant-disparity field on an ideal 100x100 rig with
// f=100px and baseline 0.1m, so disparity 10 places every pixel at Z=1m and
// one pixel step is one centimeter of X or Y.
func flatScene(t *testing.T, holes ...image.Point) *stereo.PointField {
	t.Helper()
	df := raster.NewDisparityField(100, 100)
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			df.Set(x, y, 10, raster.Matched)
		}
	}
	for _, h := range holes {
		df.Invalidate(h.X, h.Y)
	}
	params := calib.NewIdealStereoParams(100, 100, 100, 0.1)
	pf, err := stereo.Reproject(df, params.QMatrix())
	test.That(t, err, test.ShouldBeNil)
	return pf
}

func TestSessionMeasuresKnownDistance(t *testing.T) {
	logger := golog.NewTestLogger(t)
	session := NewSession("pair0", flatScene(t), 0.02, nil, logger)
	test.That(t, session.State(), test.ShouldEqual, StateIdle)

	m, err := session.Pick(image.Point{50, 50})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldBeNil)
	test.That(t, session.State(), test.ShouldEqual, StateOnePicked)

	// 5 pixels at f=100px and Z=1m is exactly 5cm
	m, err = session.Pick(image.Point{55, 50})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldNotBeNil)
	test.That(t, m.DistanceMeters, test.ShouldAlmostEqual, 0.05, 1e-9)
	test.That(t, m.ToleranceMeters, test.ShouldEqual, 0.02)
	test.That(t, m.Pair, test.ShouldEqual, "pair0")
	test.That(t, m.PixelA, test.ShouldResemble, [2]int{50, 50})
	test.That(t, m.PixelB, test.ShouldResemble, [2]int{55, 50})

	// reporting resets the session for the next measurement
	test.That(t, session.State(), test.ShouldEqual, StateIdle)
}

func TestSessionZeroDistance(t *testing.T) {
	logger := golog.NewTestLogger(t)
	session := NewSession("pair0", flatScene(t), 0.02, nil, logger)

	_, err := session.Pick(image.Point{30, 40})
	test.That(t, err, test.ShouldBeNil)
	m, err := session.Pick(image.Point{30, 40})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.DistanceMeters, test.ShouldEqual, 0.0)
}

func TestSessionRejectsPicksWithoutDepth(t *testing.T) {
	logger := golog.NewTestLogger(t)
	session := NewSession("pair0", flatScene(t, image.Point{20, 20}), 0.02, nil, logger)

	// sentinel pixel
	_, err := session.Pick(image.Point{20, 20})
	test.That(t, errors.Is(err, ErrNoDepthHere), test.ShouldBeTrue)
	test.That(t, session.State(), test.ShouldEqual, StateIdle)

	// out of bounds
	_, err = session.Pick(image.Point{-1, 5})
	test.That(t, errors.Is(err, ErrNoDepthHere), test.ShouldBeTrue)
	_, err = session.Pick(image.Point{100, 5})
	test.That(t, errors.Is(err, ErrNoDepthHere), test.ShouldBeTrue)

	// a rejected pick never disturbs an armed session
	_, err = session.Pick(image.Point{50, 50})
	test.That(t, err, test.ShouldBeNil)
	_, err = session.Pick(image.Point{20, 20})
	test.That(t, errors.Is(err, ErrNoDepthHere), test.ShouldBeTrue)
	test.That(t, session.State(), test.ShouldEqual, StateOnePicked)

	m, err := session.Pick(image.Point{51, 50})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.PixelA, test.ShouldResemble, [2]int{50, 50})
}

func TestSessionClear(t *testing.T) {
	logger := golog.NewTestLogger(t)
	session := NewSession("pair0", flatScene(t), 0.02, nil, logger)

	_, err := session.Pick(image.Point{10, 10})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, session.State(), test.ShouldEqual, StateOnePicked)
	session.Clear()
	test.That(t, session.State(), test.ShouldEqual, StateIdle)

	// the next pick starts a fresh measurement
	_, err = session.Pick(image.Point{60, 60})
	test.That(t, err, test.ShouldBeNil)
	m, err := session.Pick(image.Point{60, 60})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.PixelA, test.ShouldResemble, [2]int{60, 60})
}

func TestSessionRecordsMeasurements(t *testing.T) {
	logger := golog.NewTestLogger(t)
	var buf bytes.Buffer
	session := NewSession("pair0", flatScene(t), 0.02, NewRecorder(&buf), logger)

	_, err := session.Pick(image.Point{50, 50})
	test.That(t, err, test.ShouldBeNil)
	_, err = session.Pick(image.Point{55, 50})
	test.That(t, err, test.ShouldBeNil)

	var got Measurement
	test.That(t, json.Unmarshal(buf.Bytes(), &got), test.ShouldBeNil)
	test.That(t, got.Pair, test.ShouldEqual, "pair0")
	test.That(t, got.DistanceMeters, test.ShouldAlmostEqual, 0.05, 1e-9)
	test.That(t, got.At.IsZero(), test.ShouldBeFalse)
}
