package gateway

// ConnState represents the connection manager's position in its
// reconnect state machine
type ConnState int

const (
	// StateDisconnected - no session, no attempt in progress
	StateDisconnected ConnState = iota
	// StateConnecting - a dial attempt is in flight
	StateConnecting
	// StateConnected - a live session exists
	StateConnected
	// StateBackoff - last attempt failed, waiting out the retry delay
	StateBackoff
)

// String returns the string representation of the connection state
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateBackoff:
		return "BACKOFF"
	default:
		return "UNKNOWN"
	}
}
