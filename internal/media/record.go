package media

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
)

// ErrRecorderClosed is returned by WriteRTP after Close.
var ErrRecorderClosed = errors.New("recorder closed")

// Recorder writes a received VP8 stream to an IVF file. It is safe for
// concurrent use.
type Recorder struct {
	mu     sync.Mutex
	w      *ivfwriter.IVFWriter
	closed bool
}

// NewRecorder creates (or truncates) the IVF file at path.
func NewRecorder(path string) (*Recorder, error) {
	w, err := ivfwriter.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}
	return &Recorder{w: w}, nil
}

// WriteRTP appends one packet.
func (r *Recorder) WriteRTP(pkt *rtp.Packet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	return r.w.WriteRTP(pkt)
}

// Close finalizes the file header and closes it. Later calls are no-ops.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.w.Close()
}
