// Package media moves video between the network and the renderer: the
// broadcaster plays an IVF file into a local track, the viewer depacketizes
// the remote track, decodes VP8 key frames and publishes them to a FrameStore.
package media

import (
	"image"
	"sync/atomic"
)

type frame struct {
	img image.Image
	seq uint64
}

// FrameStore holds the most recent decoded frame. One goroutine stores, any
// number may load; a stored image is never modified afterwards.
type FrameStore struct {
	cur atomic.Pointer[frame]
}

// Store publishes img as the current frame.
func (s *FrameStore) Store(img image.Image) {
	var seq uint64 = 1
	if prev := s.cur.Load(); prev != nil {
		seq = prev.seq + 1
	}
	s.cur.Store(&frame{img: img, seq: seq})
}

// Frame returns the current frame, or nil before the first Store.
func (s *FrameStore) Frame() image.Image {
	if f := s.cur.Load(); f != nil {
		return f.img
	}
	return nil
}

// Seq returns how many frames have been stored.
func (s *FrameStore) Seq() uint64 {
	if f := s.cur.Load(); f != nil {
		return f.seq
	}
	return 0
}
