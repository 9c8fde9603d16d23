package domain

// ConnectionState definition transport connection state
type ConnectionState int

const (
	// StateDisconnected transport not connected
	StateDisconnected ConnectionState = iota
	// StateConnecting transport is establishing a connection
	StateConnecting
	// StateConnected transport connected and ready
	StateConnected
	// StateReconnecting transport attempting to reconnect after a drop
	StateReconnecting
)

// String state name
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// ConnectionChange local event published on every state transition
type ConnectionChange struct {
	Old ConnectionState
	New ConnectionState
	Err error
}
