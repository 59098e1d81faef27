package measure

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Recorder appends completed measurements to a structured log, one JSON
// object per line.
type Recorder struct {
	mu  sync.Mutex
	enc *json.Encoder
	c   io.Closer
}

// NewRecorder writes records to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: json.NewEncoder(w)}
}

// NewFileRecorder appends records to the file at path, creating it if needed.
func NewFileRecorder(path string) (*Recorder, error) {
	//nolint:gosec
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "opening measurement log")
	}
	return &Recorder{enc: json.NewEncoder(f), c: f}, nil
}

// Record appends one measurement.
func (r *Recorder) Record(m *Measurement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(m)
}

// Close closes the underlying file, if any.
func (r *Recorder) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}
