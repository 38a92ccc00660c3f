package signaling

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/webrtc/v4"
)

// Candidate is a decoded ICE candidate triple.
type Candidate struct {
	Candidate     string
	SDPMLineIndex uint16
	SDPMid        string
}

// CandidateFromInit converts a locally gathered candidate. Missing mid/index
// fields default to "" and 0.
func CandidateFromInit(init webrtc.ICECandidateInit) Candidate {
	c := Candidate{Candidate: init.Candidate}
	if init.SDPMLineIndex != nil {
		c.SDPMLineIndex = *init.SDPMLineIndex
	}
	if init.SDPMid != nil {
		c.SDPMid = *init.SDPMid
	}
	return c
}

// Init returns the form accepted by PeerConnection.AddICECandidate.
func (c Candidate) Init() webrtc.ICECandidateInit {
	index := c.SDPMLineIndex
	mid := c.SDPMid
	return webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMLineIndex: &index,
		SDPMid:        &mid,
	}
}

// Encode joins the triple as "{candidate}{sep}{sdpMLineIndex}{sep}{sdpMid}".
func (c Candidate) Encode(sep string) string {
	return c.Candidate + sep + strconv.FormatUint(uint64(c.SDPMLineIndex), 10) + sep + c.SDPMid
}

// DecodeCandidate splits payload on sep. Fewer than three parts, an empty
// separator or a non-numeric media-line index yield a *CandidateDecodeError.
// Parts past the third are ignored.
func DecodeCandidate(payload, sep string) (Candidate, error) {
	if sep == "" {
		return Candidate{}, &CandidateDecodeError{Payload: payload, Reason: "empty separator"}
	}

	parts := strings.Split(payload, sep)
	if len(parts) < 3 {
		return Candidate{}, &CandidateDecodeError{
			Payload: payload,
			Reason:  fmt.Sprintf("expected 3 parts separated by %q, got %d", sep, len(parts)),
		}
	}

	index, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 16)
	if err != nil {
		return Candidate{}, &CandidateDecodeError{Payload: payload, Reason: fmt.Sprintf("invalid sdpMLineIndex %q", parts[1])}
	}

	return Candidate{
		Candidate:     parts[0],
		SDPMLineIndex: uint16(index),
		SDPMid:        parts[2],
	}, nil
}
