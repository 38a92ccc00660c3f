package channel

import (
	"context"

	"github.com/1ureka/thetacast/internal/signaling"
	"github.com/1ureka/thetacast/internal/util"
)

const outboxSize = 64

// Poster delivers a single message to the remote endpoint.
type Poster interface {
	Post(ctx context.Context, msg signaling.Message) error
}

// Outbox is a goroutine-based message writer that serializes all posts to
// the relay, so outbound messages leave in the order they were produced and
// a slow relay never blocks the caller beyond the queue capacity.
type Outbox struct {
	inbox chan signaling.Message
}

var _ signaling.Sender = (*Outbox)(nil)

// NewOutbox creates an Outbox and starts its loop. The loop exits when ctx is
// cancelled.
func NewOutbox(ctx context.Context, p Poster) *Outbox {
	o := &Outbox{inbox: make(chan signaling.Message, outboxSize)}
	go o.loop(ctx, p)
	return o
}

// loop is the single-writer goroutine. Failed posts are logged and dropped;
// the relay is best-effort.
func (o *Outbox) loop(ctx context.Context, p Poster) {
	for {
		select {
		case msg := <-o.inbox:
			if err := p.Post(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return
				}
				util.LogWarning("failed to post %s: %v", msg.Kind(), err)
				continue
			}
			util.Stats.AddSent()
			util.LogDebug("→ %s", msg)
		case <-ctx.Done():
			return
		}
	}
}

// Send enqueues msg for delivery. It blocks if the queue is full and returns
// ctx's error if ctx is cancelled first.
func (o *Outbox) Send(ctx context.Context, msg signaling.Message) error {
	select {
	case o.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
