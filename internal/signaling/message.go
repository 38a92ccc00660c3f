// Package signaling implements the offer/answer negotiation state machine and
// the signaling message format exchanged through the relay.
package signaling

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the kind of signaling message. The numeric values are the
// relay's MessageType field.
type Kind int

const (
	KindOffer        Kind = 1
	KindAnswer       Kind = 2
	KindICECandidate Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindOffer:
		return "offer"
	case KindAnswer:
		return "answer"
	case KindICECandidate:
		return "ice-candidate"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Known reports whether k is one of the three defined kinds.
func (k Kind) Known() bool {
	return k == KindOffer || k == KindAnswer || k == KindICECandidate
}

// Message is an immutable signaling message. Offer and Answer carry a session
// description; IceCandidate carries an encoded candidate triple together with
// the separator used to encode it.
//
// Unknown kinds are preserved by UnmarshalJSON so the engine can log and
// discard them.
type Message struct {
	kind      Kind
	data      string
	separator string
}

// NewOffer builds an Offer message.
func NewOffer(sdp string) Message {
	return Message{kind: KindOffer, data: sdp}
}

// NewAnswer builds an Answer message.
func NewAnswer(sdp string) Message {
	return Message{kind: KindAnswer, data: sdp}
}

// NewCandidate encodes c with sep into an IceCandidate message.
func NewCandidate(c Candidate, sep string) Message {
	return Message{kind: KindICECandidate, data: c.Encode(sep), separator: sep}
}

func (m Message) Kind() Kind        { return m.kind }
func (m Message) Data() string      { return m.data }
func (m Message) Separator() string { return m.separator }

// SDP returns the session description of an Offer or Answer.
func (m Message) SDP() string {
	return m.data
}

// Candidate decodes the triple of an IceCandidate message.
func (m Message) Candidate() (Candidate, error) {
	if m.kind != KindICECandidate {
		return Candidate{}, &CandidateDecodeError{Payload: m.data, Reason: fmt.Sprintf("message kind is %s", m.kind)}
	}
	return DecodeCandidate(m.data, m.separator)
}

func (m Message) String() string {
	if m.kind == KindICECandidate {
		return fmt.Sprintf("%s %q", m.kind, m.data)
	}
	return fmt.Sprintf("%s (%d bytes)", m.kind, len(m.data))
}

// wireMessage is the JSON structure posted to and polled from the relay.
type wireMessage struct {
	MessageType      int    `json:"MessageType"`
	Data             string `json:"Data"`
	IceDataSeparator string `json:"IceDataSeparator,omitempty"`
}

// MarshalJSON implements json.Marshaler using the relay wire format.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		MessageType:      int(m.kind),
		Data:             m.data,
		IceDataSeparator: m.separator,
	})
}

// UnmarshalJSON implements json.Unmarshaler using the relay wire format.
func (m *Message) UnmarshalJSON(b []byte) error {
	var w wireMessage
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*m = Message{kind: Kind(w.MessageType), data: w.Data, separator: w.IceDataSeparator}
	return nil
}
