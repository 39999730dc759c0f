package http2

// StreamState is one of the seven stream lifecycle states.
//
// https://httpwg.org/specs/rfc7540.html#StreamStates
type StreamState int8

const (
	StreamStateIdle StreamState = iota
	StreamStateReservedLocal
	StreamStateReservedRemote
	StreamStateOpen
	StreamStateHalfClosedLocal
	StreamStateHalfClosedRemote
	StreamStateClosed
)

func (ss StreamState) String() string {
	switch ss {
	case StreamStateIdle:
		return "Idle"
	case StreamStateReservedLocal:
		return "ReservedLocal"
	case StreamStateReservedRemote:
		return "ReservedRemote"
	case StreamStateOpen:
		return "Open"
	case StreamStateHalfClosedLocal:
		return "HalfClosedLocal"
	case StreamStateHalfClosedRemote:
		return "HalfClosedRemote"
	case StreamStateClosed:
		return "Closed"
	}

	return "Unknown"
}

// Active returns true for every state between idle and closed.
func (ss StreamState) Active() bool {
	return ss != StreamStateIdle && ss != StreamStateClosed
}
