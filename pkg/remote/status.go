package remote

// Status describes the usability of a transport session or transfer channel.
// Disconnected and Failed are both unusable for issuing operations, but a
// Failed session tells the caller the host should be treated as unreachable
// rather than simply not dialed yet.
type Status int

const (
	// StatusDisconnected is the initial state and the state after an
	// explicit disconnect.
	StatusDisconnected Status = iota
	// StatusConnected means the handle is live and operations may be issued.
	StatusConnected
	// StatusFailed means the last connect exhausted its retry budget.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
