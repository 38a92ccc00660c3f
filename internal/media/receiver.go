package media

import (
	"context"
	"errors"
	"io"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4/pkg/media/samplebuilder"

	"github.com/1ureka/thetacast/internal/util"
)

const (
	vp8ClockRate = 90000
	maxLate      = 128 // packets kept for reordering before a sample is given up
)

// RTPReader is the read side of a remote track.
type RTPReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// PacketWriter receives every packet read from the track, before
// reassembly. An IVF recorder is one.
type PacketWriter interface {
	WriteRTP(*rtp.Packet) error
}

// Receiver turns a VP8 RTP stream into decoded frames.
type Receiver struct {
	track    RTPReader
	store    *FrameStore
	recorder PacketWriter
	builder  *samplebuilder.SampleBuilder
}

// NewReceiver creates a Receiver publishing to store. recorder may be nil.
func NewReceiver(track RTPReader, store *FrameStore, recorder PacketWriter) *Receiver {
	return &Receiver{
		track:    track,
		store:    store,
		recorder: recorder,
		builder:  samplebuilder.New(maxLate, &codecs.VP8Packet{}, vp8ClockRate),
	}
}

// Run reads packets until the track ends or ctx is cancelled. The end of the
// track is not an error.
func (r *Receiver) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		pkt, _, err := r.track.ReadRTP()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		r.handlePacket(pkt)
	}
}

func (r *Receiver) handlePacket(pkt *rtp.Packet) {
	util.Stats.AddBytes(len(pkt.Payload))

	if r.recorder != nil {
		if err := r.recorder.WriteRTP(pkt); err != nil {
			util.LogWarning("recording stopped: %v", err)
			r.recorder = nil
		}
	}

	r.builder.Push(pkt)
	for sample := r.builder.Pop(); sample != nil; sample = r.builder.Pop() {
		r.handleFrame(sample.Data)
	}
}

func (r *Receiver) handleFrame(data []byte) {
	img, err := DecodeKeyframe(data)
	if err != nil {
		if !errors.Is(err, ErrNotKeyframe) {
			util.LogDebug("dropping undecodable frame: %v", err)
		}
		return
	}

	r.store.Store(img)
	util.Stats.AddDecodedFrame()
}
