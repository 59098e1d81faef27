package measure

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestFileRecorderAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "measurements.jsonl")

	rec, err := NewFileRecorder(path)
	test.That(t, err, test.ShouldBeNil)
	m := &Measurement{
		Pair:           "pair0",
		PixelA:         [2]int{1, 2},
		PixelB:         [2]int{3, 4},
		PointA:         r3.Vector{X: 0, Y: 0, Z: 1},
		PointB:         r3.Vector{X: 0.05, Y: 0, Z: 1},
		DistanceMeters: 0.05,
		At:             time.Now().UTC(),
	}
	test.That(t, rec.Record(m), test.ShouldBeNil)
	test.That(t, rec.Close(), test.ShouldBeNil)

	// a second recorder appends rather than truncates
	rec, err = NewFileRecorder(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rec.Record(m), test.ShouldBeNil)
	test.That(t, rec.Close(), test.ShouldBeNil)

	f, err := os.Open(path)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, f.Close(), test.ShouldBeNil)
	}()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var got Measurement
		test.That(t, json.Unmarshal(scanner.Bytes(), &got), test.ShouldBeNil)
		test.That(t, got.Pair, test.ShouldEqual, "pair0")
		test.That(t, got.DistanceMeters, test.ShouldEqual, 0.05)
		lines++
	}
	test.That(t, scanner.Err(), test.ShouldBeNil)
	test.That(t, lines, test.ShouldEqual, 2)
}

func TestRecorderCloseWithoutFile(t *testing.T) {
	rec := NewRecorder(os.Stderr)
	test.That(t, rec.Close(), test.ShouldBeNil)
}
