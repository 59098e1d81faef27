// Package measure implements the interactive measurement session: two pixel
// picks on a processed pair become a metric distance. The session only reads
// the pair's published point field, so it can run while other pairs are still
// being processed.
package measure

import (
	"image"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/depthward/stereodepth/stereo"
)

// ErrNoDepthHere is returned for a pick on a pixel with no recovered depth.
// The pick is rejected and the session state is unchanged.
var ErrNoDepthHere = errors.New("no depth here")

// State is the session's resting state. The reported state of the pick cycle
// is transient: delivering the completed measurement to the caller is the
// report, after which the session is already back to idle.
type State int

const (
	// StateIdle means no pixel is selected.
	StateIdle State = iota
	// StateOnePicked means the first pixel of a measurement is selected.
	StateOnePicked
)

// Measurement is one completed two-pick measurement.
type Measurement struct {
	Pair            string    `json:"pair,omitempty"`
	PixelA          [2]int    `json:"pixel_a"`
	PixelB          [2]int    `json:"pixel_b"`
	PointA          r3.Vector `json:"point_a"`
	PointB          r3.Vector `json:"point_b"`
	DistanceMeters  float64   `json:"distance_m"`
	ToleranceMeters float64   `json:"tolerance_m"`
	At              time.Time `json:"at"`
}

// Session is the pick/clear/report state machine for one processed pair.
// It is inherently single-user and not safe for concurrent use.
type Session struct {
	pair      string
	points    *stereo.PointField
	tolerance float64
	recorder  *Recorder
	logger    golog.Logger

	state      State
	firstPixel image.Point
	firstPoint r3.Vector
}

// NewSession starts a session over a pair's published point field. The
// recorder may be nil when measurements should not be persisted.
func NewSession(pair string, points *stereo.PointField, toleranceMeters float64, recorder *Recorder, logger golog.Logger) *Session {
	return &Session{
		pair:      pair,
		points:    points,
		tolerance: toleranceMeters,
		recorder:  recorder,
		logger:    logger,
	}
}

// State returns the session's resting state.
func (s *Session) State() State {
	return s.state
}

// Pick selects a pixel. The first valid pick arms the session; the second
// completes a measurement, which is logged, recorded, and returned, and the
// session resets for the next pair of picks. A pick on a pixel without depth
// returns ErrNoDepthHere and changes nothing.
func (s *Session) Pick(p image.Point) (*Measurement, error) {
	if !s.points.In(p.X, p.Y) {
		return nil, errors.Wrapf(ErrNoDepthHere, "pixel (%d,%d) out of bounds", p.X, p.Y)
	}
	pt, ok := s.points.At(p.X, p.Y)
	if !ok {
		return nil, errors.Wrapf(ErrNoDepthHere, "pixel (%d,%d)", p.X, p.Y)
	}

	if s.state == StateIdle {
		s.firstPixel = p
		s.firstPoint = pt
		s.state = StateOnePicked
		return nil, nil
	}

	m := &Measurement{
		Pair:            s.pair,
		PixelA:          [2]int{s.firstPixel.X, s.firstPixel.Y},
		PixelB:          [2]int{p.X, p.Y},
		PointA:          s.firstPoint,
		PointB:          pt,
		DistanceMeters:  s.firstPoint.Sub(pt).Norm(),
		ToleranceMeters: s.tolerance,
		At:              time.Now().UTC(),
	}
	s.state = StateIdle
	s.logger.Infow("measured",
		"pair", s.pair,
		"from", m.PixelA, "to", m.PixelB,
		"distanceM", m.DistanceMeters)
	if s.recorder != nil {
		if err := s.recorder.Record(m); err != nil {
			return m, errors.Wrap(err, "recording measurement")
		}
	}
	return m, nil
}

// Clear resets the session to idle from any state.
func (s *Session) Clear() {
	s.state = StateIdle
	s.firstPixel = image.Point{}
	s.firstPoint = r3.Vector{}
}
