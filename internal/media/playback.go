package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"

	"github.com/1ureka/thetacast/internal/util"
)

const defaultFrameDuration = time.Second / 30

// SampleWriter accepts encoded media samples. *webrtc.TrackLocalStaticSample
// is one.
type SampleWriter interface {
	WriteSample(media.Sample) error
}

// NewVideoTrack creates the broadcaster's VP8 track with a unique stream id.
func NewVideoTrack() (*webrtc.TrackLocalStaticSample, error) {
	return webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video",
		"thetacast-"+uuid.NewString(),
	)
}

// Playback streams an IVF file into a track, looping at end of file.
type Playback struct {
	path  string
	track SampleWriter
}

// NewPlayback creates a Playback of the VP8 IVF file at path.
func NewPlayback(path string, track SampleWriter) *Playback {
	return &Playback{path: path, track: track}
}

// Run writes frames paced by the file's timebase until ctx is cancelled or a
// write fails.
func (p *Playback) Run(ctx context.Context) error {
	for {
		if err := p.playOnce(ctx); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		util.LogDebug("playback of %s looped", p.path)
	}
}

func (p *Playback) playOnce(ctx context.Context) error {
	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("failed to open video: %w", err)
	}
	defer f.Close()

	reader, header, err := ivfreader.NewWith(f)
	if err != nil {
		return fmt.Errorf("failed to read IVF header: %w", err)
	}
	if header.FourCC != "VP80" {
		return fmt.Errorf("unsupported codec %q in %s", header.FourCC, p.path)
	}

	duration := frameDuration(header)
	ticker := time.NewTicker(duration)
	defer ticker.Stop()

	frames := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		frame, _, err := reader.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			if frames == 0 {
				return fmt.Errorf("%s contains no frames", p.path)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read IVF frame: %w", err)
		}

		if err := p.track.WriteSample(media.Sample{Data: frame, Duration: duration}); err != nil {
			return fmt.Errorf("failed to write sample: %w", err)
		}
		frames++
	}
}

// frameDuration derives the per-frame duration from the IVF timebase.
func frameDuration(h *ivfreader.IVFFileHeader) time.Duration {
	if h.TimebaseNumerator == 0 || h.TimebaseDenominator == 0 {
		return defaultFrameDuration
	}
	d := time.Duration(float64(time.Second) * float64(h.TimebaseNumerator) / float64(h.TimebaseDenominator))
	if d <= 0 {
		return defaultFrameDuration
	}
	return d
}
