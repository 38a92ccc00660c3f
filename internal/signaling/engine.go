package signaling

import (
	"context"
	"sync/atomic"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/thetacast/internal/config"
	"github.com/1ureka/thetacast/internal/util"
)

const mailboxSize = 256

// Peer is the subset of a PeerConnection the engine drives. The engine is its
// only mutator for descriptions and remote candidates.
type Peer interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error
	LocalDescription() *webrtc.SessionDescription
}

// Sender delivers outbound messages to the remote endpoint. Delivery is
// best-effort; a failed send is logged and not retried.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Options configures an Engine.
type Options struct {
	Role      config.Role
	Initiator config.Role // role that reacts to negotiation-needed
	Separator string      // separator for outgoing candidate triples
}

// Engine owns the negotiation state machine of one session.
//
// Every input is posted to a mailbox and executed by the Run loop, so state,
// the candidate buffer and the deferred queue are only touched by one
// goroutine. Description operations run off-loop and their results re-enter
// through the same mailbox; inputs that would conflict with an operation in
// flight are queued or rejected.
type Engine struct {
	role      config.Role
	initiator config.Role
	separator string
	peer      Peer
	out       Sender

	events chan func()
	done   chan struct{}
	state  atomic.Int32

	// Loop-owned.
	ctx       context.Context
	remoteSet bool
	busy      bool      // a description operation is in flight
	deferred  []Message // descriptions that arrived while busy
	buffer    CandidateBuffer
	err       error
}

// NewEngine creates an engine in the Idle state. Call Run to start it.
func NewEngine(peer Peer, out Sender, opts Options) *Engine {
	sep := opts.Separator
	if sep == "" {
		sep = config.DefaultSeparator
	}
	initiator := opts.Initiator
	if initiator == "" {
		initiator = config.RoleViewer
	}

	return &Engine{
		role:      opts.Role,
		initiator: initiator,
		separator: sep,
		peer:      peer,
		out:       out,
		events:    make(chan func(), mailboxSize),
		done:      make(chan struct{}),
		ctx:       context.Background(),
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Run executes posted events until ctx is cancelled or the negotiation fails.
// It returns nil on cancellation and the fatal error (a *DescriptionError or
// ErrConnectionFailed) otherwise.
func (e *Engine) Run(ctx context.Context) error {
	e.ctx = ctx
	defer close(e.done)

	for {
		select {
		case fn := <-e.events:
			fn()
			if e.err != nil {
				return e.err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// State returns the current negotiation state. Safe from any goroutine.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// post queues fn for the loop. Events posted after Run returned are dropped.
func (e *Engine) post(fn func()) {
	select {
	case e.events <- fn:
	case <-e.done:
	}
}

// ---------------------------------------------------------------------------
// Inputs
// ---------------------------------------------------------------------------

// HandleMessage is the single entry point for inbound signaling traffic.
func (e *Engine) HandleMessage(msg Message) {
	e.post(func() { e.dispatch(msg) })
}

// NegotiationNeeded is called by the peer connection when local tracks change.
func (e *Engine) NegotiationNeeded() {
	e.post(e.negotiationNeeded)
}

// LocalCandidate forwards a locally gathered candidate to the remote side.
// A nil candidate marks the end of gathering and is ignored.
func (e *Engine) LocalCandidate(c *webrtc.ICECandidate) {
	if c == nil {
		return
	}
	init := c.ToJSON()
	e.post(func() { e.localCandidate(CandidateFromInit(init)) })
}

// PeerStateChanged is called by the peer connection on connection state
// changes.
func (e *Engine) PeerStateChanged(s webrtc.PeerConnectionState) {
	e.post(func() { e.peerStateChanged(s) })
}

// ---------------------------------------------------------------------------
// Loop handlers
// ---------------------------------------------------------------------------

func (e *Engine) dispatch(msg Message) {
	if e.State() == StateFailed {
		return
	}

	switch msg.Kind() {
	case KindOffer:
		e.handleOffer(msg)
	case KindAnswer:
		e.handleAnswer(msg)
	case KindICECandidate:
		e.handleCandidate(msg)
	default:
		util.LogWarning("discarding signaling message of unknown kind %d: %q", int(msg.Kind()), msg.Data())
	}
}

func (e *Engine) negotiationNeeded() {
	if e.role != e.initiator {
		util.LogDebug("negotiation needed, but the %s does not initiate", e.role)
		return
	}
	if e.State() != StateIdle || e.busy {
		util.LogDebug("negotiation needed ignored in state %s", e.State())
		return
	}

	e.setState(StateAwaitingLocalDescription)
	e.busy = true

	go func() {
		op := "create offer"
		offer, err := e.peer.CreateOffer()
		if err == nil {
			op = "set local offer"
			err = e.peer.SetLocalDescription(offer)
		}
		e.post(func() { e.offerReady(offer, op, err) })
	}()
}

func (e *Engine) offerReady(offer webrtc.SessionDescription, op string, err error) {
	e.busy = false
	if e.State() != StateAwaitingLocalDescription {
		return
	}
	if err != nil {
		e.fail(op, err)
		return
	}

	e.setState(StateOfferSent)
	e.emit(NewOffer(e.localSDP(offer)))
	e.replayDeferred()
}

func (e *Engine) handleOffer(msg Message) {
	if e.State().offering() {
		util.LogWarning("rejecting remote offer: local offer outstanding (state %s)", e.State())
		return
	}
	if e.busy {
		e.deferred = append(e.deferred, msg)
		return
	}

	e.busy = true
	sdp := msg.SDP()

	go func() {
		answer, op, err := e.answer(sdp)
		e.post(func() { e.answerReady(answer, op, err) })
	}()
}

// answer runs off-loop: apply the remote offer, then create and apply the
// local answer. op names the step that failed.
func (e *Engine) answer(sdp string) (webrtc.SessionDescription, string, error) {
	if err := e.peer.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}); err != nil {
		return webrtc.SessionDescription{}, "set remote offer", err
	}
	answer, err := e.peer.CreateAnswer()
	if err != nil {
		return webrtc.SessionDescription{}, "create answer", err
	}
	if err := e.peer.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, "set local answer", err
	}
	return answer, "", nil
}

func (e *Engine) answerReady(answer webrtc.SessionDescription, op string, err error) {
	e.busy = false
	if e.State() == StateFailed {
		return
	}
	if err != nil {
		e.fail(op, err)
		return
	}

	e.remoteSet = true
	e.flushCandidates()
	e.emit(NewAnswer(e.localSDP(answer)))

	// A renegotiation on an established session keeps it Connected.
	if e.State() != StateConnected {
		e.setState(StateAnswerSent)
	}
	e.replayDeferred()
}

func (e *Engine) handleAnswer(msg Message) {
	if e.State() != StateOfferSent || e.busy {
		util.LogWarning("ignoring answer in state %s: no offer outstanding", e.State())
		return
	}

	e.setState(StateAwaitingRemoteAnswer)
	e.busy = true
	sdp := msg.SDP()

	go func() {
		err := e.peer.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp})
		e.post(func() { e.remoteAnswerApplied(err) })
	}()
}

func (e *Engine) remoteAnswerApplied(err error) {
	e.busy = false
	if e.State() != StateAwaitingRemoteAnswer {
		return
	}
	if err != nil {
		e.fail("set remote answer", err)
		return
	}

	e.remoteSet = true
	e.flushCandidates()
	e.setState(StateConnected)
	e.replayDeferred()
}

func (e *Engine) handleCandidate(msg Message) {
	c, err := msg.Candidate()
	if err != nil {
		util.LogWarning("dropping ICE candidate: %v", err)
		return
	}

	if !e.remoteSet {
		e.buffer.Push(c)
		util.Stats.AddQueued()
		util.LogDebug("queued remote ICE candidate (%d pending)", e.buffer.Len())
		return
	}
	e.applyCandidate(c)
}

func (e *Engine) applyCandidate(c Candidate) {
	if err := e.peer.AddICECandidate(c.Init()); err != nil {
		util.LogWarning("AddICECandidate failed: %v", err)
		return
	}
	util.Stats.AddCandidate()
}

// flushCandidates applies every buffered candidate in arrival order. It runs
// on the loop, so nothing can interleave with the drain.
func (e *Engine) flushCandidates() {
	pending := e.buffer.Drain()
	if len(pending) > 0 {
		util.LogDebug("flushing %d queued ICE candidates", len(pending))
	}
	for _, c := range pending {
		e.applyCandidate(c)
	}
}

func (e *Engine) localCandidate(c Candidate) {
	if e.State() == StateFailed {
		return
	}
	e.emit(NewCandidate(c, e.separator))
}

func (e *Engine) peerStateChanged(s webrtc.PeerConnectionState) {
	util.LogDebug("peer connection state: %s", s)

	switch s {
	case webrtc.PeerConnectionStateConnected:
		if e.State() == StateAnswerSent {
			e.setState(StateConnected)
		}
	case webrtc.PeerConnectionStateFailed:
		if e.State() != StateFailed {
			e.setState(StateFailed)
			e.err = ErrConnectionFailed
			util.LogError("negotiation failed: %v", e.err)
		}
	}
}

// replayDeferred re-dispatches descriptions that arrived while an operation
// was in flight. Dispatch may start a new operation, in which case the rest
// stay queued.
func (e *Engine) replayDeferred() {
	for len(e.deferred) > 0 && !e.busy && e.State() != StateFailed {
		msg := e.deferred[0]
		e.deferred = e.deferred[1:]
		e.dispatch(msg)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (e *Engine) setState(s State) {
	prev := State(e.state.Swap(int32(s)))
	if prev != s {
		util.LogInfo("negotiation: %s → %s", prev, s)
	}
}

func (e *Engine) fail(op string, err error) {
	e.setState(StateFailed)
	e.buffer.Drain()
	e.deferred = nil
	e.err = &DescriptionError{Op: op, Err: err}
	util.LogError("negotiation failed: %v", e.err)
}

func (e *Engine) emit(msg Message) {
	if err := e.out.Send(e.ctx, msg); err != nil {
		util.LogWarning("failed to send %s: %v", msg.Kind(), err)
	}
}

// localSDP prefers the peer's current local description, which includes any
// candidates gathered while it was being applied.
func (e *Engine) localSDP(fallback webrtc.SessionDescription) string {
	if d := e.peer.LocalDescription(); d != nil && d.SDP != "" {
		return d.SDP
	}
	return fallback.SDP
}
