package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide session counter set.
var Stats = &stats{}

type stats struct {
	MessagesSent     atomic.Int64 // signaling messages posted to the relay
	MessagesRecv     atomic.Int64 // signaling messages taken from the relay
	CandidatesQueued atomic.Int64 // remote ICE candidates buffered before the remote description
	CandidatesAdded  atomic.Int64 // remote ICE candidates applied to the peer connection
	BytesRecv        atomic.Int64 // RTP payload bytes received from the remote track
	FramesDecoded    atomic.Int64 // video frames stored for the renderer
	FramesRendered   atomic.Int64 // frames presented to the output surface
}

func (s *stats) AddSent()          { s.MessagesSent.Add(1) }
func (s *stats) AddRecv()          { s.MessagesRecv.Add(1) }
func (s *stats) AddQueued()        { s.CandidatesQueued.Add(1) }
func (s *stats) AddCandidate()     { s.CandidatesAdded.Add(1) }
func (s *stats) AddBytes(n int)    { s.BytesRecv.Add(int64(n)) }
func (s *stats) AddDecodedFrame()  { s.FramesDecoded.Add(1) }
func (s *stats) AddRenderedFrame() { s.FramesRendered.Add(1) }

// snapshot is a point-in-time copy of the counters.
type snapshot struct {
	sent, recv, queued, added, bytes, decoded, rendered int64
}

func (s *stats) snapshot() snapshot {
	return snapshot{
		sent:     s.MessagesSent.Load(),
		recv:     s.MessagesRecv.Load(),
		queued:   s.CandidatesQueued.Load(),
		added:    s.CandidatesAdded.Load(),
		bytes:    s.BytesRecv.Load(),
		decoded:  s.FramesDecoded.Load(),
		rendered: s.FramesRendered.Load(),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

const reportInterval = 10 * time.Second

// StartStatsReporter launches a goroutine that logs session statistics
// every 10 seconds. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(reportInterval)
		defer ticker.Stop()

		prev := Stats.snapshot()
		for {
			select {
			case <-ticker.C:
				cur := Stats.snapshot()
				if cur != prev {
					pterm.DefaultLogger.Info(formatStats(prev, cur, reportInterval.Seconds()))
				}
				prev = cur

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats renders the delta between two snapshots over the given window.
func formatStats(prev, cur snapshot, seconds float64) string {
	return fmt.Sprintf("Video: %s/s | Decoded: %5.1f fps | Rendered: %5.1f fps | Signal: %2d↑ %2d↓ | ICE: %d queued, %d added",
		formatBytes(float64(cur.bytes-prev.bytes)/seconds),
		float64(cur.decoded-prev.decoded)/seconds,
		float64(cur.rendered-prev.rendered)/seconds,
		cur.sent-prev.sent,
		cur.recv-prev.recv,
		cur.queued,
		cur.added,
	)
}
