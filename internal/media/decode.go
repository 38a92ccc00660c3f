package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/vp8"
)

// ErrNotKeyframe is returned for inter frames, which are skipped.
var ErrNotKeyframe = errors.New("not a key frame")

// isKeyframe reports whether a VP8 frame is a key frame. The lowest bit of
// the frame tag is 0 for key frames.
func isKeyframe(frame []byte) bool {
	return len(frame) > 0 && frame[0]&0x01 == 0
}

// DecodeKeyframe decodes a VP8 key frame into a new image. Each call uses a
// fresh decoder so the returned image is never reused by a later decode.
func DecodeKeyframe(frame []byte) (*image.YCbCr, error) {
	if !isKeyframe(frame) {
		return nil, ErrNotKeyframe
	}

	d := vp8.NewDecoder()
	d.Init(bytes.NewReader(frame), len(frame))

	fh, err := d.DecodeFrameHeader()
	if err != nil {
		return nil, fmt.Errorf("vp8 frame header: %w", err)
	}
	if !fh.KeyFrame {
		return nil, ErrNotKeyframe
	}

	img, err := d.DecodeFrame()
	if err != nil {
		return nil, fmt.Errorf("vp8 frame: %w", err)
	}
	return img, nil
}
