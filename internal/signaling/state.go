package signaling

// State is the negotiation state of a session.
//
// Offering side:  Idle → AwaitingLocalDescription → OfferSent → AwaitingRemoteAnswer → Connected
// Answering side: Idle → AnswerSent → Connected
//
// Failed is reachable from every state and is terminal.
type State int32

const (
	StateIdle State = iota
	StateAwaitingLocalDescription
	StateOfferSent
	StateAwaitingRemoteAnswer // answer received, being applied
	StateAnswerSent
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingLocalDescription:
		return "AwaitingLocalDescription"
	case StateOfferSent:
		return "OfferSent"
	case StateAwaitingRemoteAnswer:
		return "AwaitingRemoteAnswer"
	case StateAnswerSent:
		return "AnswerSent"
	case StateConnected:
		return "Connected"
	case StateFailed:
		return "Failed"
	}
	return "Unknown"
}

// offering reports whether this side has an offer outstanding.
func (s State) offering() bool {
	return s == StateAwaitingLocalDescription || s == StateOfferSent || s == StateAwaitingRemoteAnswer
}
