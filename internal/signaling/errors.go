package signaling

import (
	"errors"
	"fmt"
)

// ErrConnectionFailed is reported when the peer connection itself fails
// after negotiation.
var ErrConnectionFailed = errors.New("peer connection failed")

// DescriptionError reports a failure to create or apply a local or remote
// session description. It is fatal to the session.
type DescriptionError struct {
	Op  string // e.g. "create offer", "set remote description"
	Err error
}

func (e *DescriptionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DescriptionError) Unwrap() error { return e.Err }

// CandidateDecodeError reports a malformed IceCandidate payload. Only the
// offending message is dropped.
type CandidateDecodeError struct {
	Payload string
	Reason  string
}

func (e *CandidateDecodeError) Error() string {
	return fmt.Sprintf("malformed ICE candidate %q: %s", e.Payload, e.Reason)
}
