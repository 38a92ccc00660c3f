// Package display is the viewer's output surface: presented frames are served
// as an MJPEG stream over HTTP and user input (drag, device orientation,
// resize, activation) arrives on a WebSocket.
package display

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/1ureka/thetacast/internal/util"
)

const defaultQuality = 80

// MaxViewport bounds each viewport dimension a client may request.
const MaxViewport = 8192

// Display holds the latest presented frame and the viewport size requested
// by the client.
type Display struct {
	mu      sync.RWMutex
	w, h    int
	frame   *image.RGBA
	seq     uint64
	updated chan struct{} // closed and replaced on every Show

	encMu   sync.Mutex
	encSeq  uint64
	encoded []byte

	quality int
	input   func(Event)
}

// New creates a display with an initial viewport of w×h. input receives every
// control event after the display has applied it; it may be nil.
func New(w, h int, input func(Event)) *Display {
	return &Display{
		w:       min(w, MaxViewport),
		h:       min(h, MaxViewport),
		updated: make(chan struct{}),
		quality: defaultQuality,
		input:   input,
	}
}

// Size reports the current viewport.
func (d *Display) Size() (int, int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.w, d.h
}

// Resize changes the viewport. Non-positive sizes are ignored and larger
// ones are clamped to MaxViewport.
func (d *Display) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	w, h = min(w, MaxViewport), min(h, MaxViewport)
	d.mu.Lock()
	d.w, d.h = w, h
	d.mu.Unlock()
}

// Show copies img as the current frame and wakes stream clients.
func (d *Display) Show(img *image.RGBA) {
	d.mu.Lock()
	if d.frame == nil || d.frame.Rect != img.Rect {
		d.frame = image.NewRGBA(img.Rect)
	}
	copy(d.frame.Pix, img.Pix)
	d.seq++
	close(d.updated)
	d.updated = make(chan struct{})
	d.mu.Unlock()
}

// next returns the current frame sequence and a channel closed on the next
// Show.
func (d *Display) next() (uint64, <-chan struct{}) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.seq, d.updated
}

// JPEG returns the current frame encoded as JPEG with its sequence number,
// or nil before the first Show. Encodings are cached per frame.
func (d *Display) JPEG() ([]byte, uint64, error) {
	d.encMu.Lock()
	defer d.encMu.Unlock()

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.frame == nil {
		return nil, 0, nil
	}
	if d.encSeq == d.seq && d.encoded != nil {
		return d.encoded, d.seq, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, d.frame, &jpeg.Options{Quality: d.quality}); err != nil {
		return nil, 0, fmt.Errorf("failed to encode frame: %w", err)
	}
	d.encSeq, d.encoded = d.seq, buf.Bytes()
	return d.encoded, d.seq, nil
}

// Handler serves the stream, the latest still frame and the control socket.
func (d *Display) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stream.mjpeg", d.handleStream)
	mux.HandleFunc("GET /frame.jpg", d.handleFrame)
	mux.HandleFunc("GET /control", d.handleControl)
	return mux
}

// Serve listens on addr and serves until ctx is cancelled.
func (d *Display) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start display: %w", err)
	}
	util.LogSuccess("Display ready at http://%s/stream.mjpeg", listener.Addr())

	srv := &http.Server{
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
