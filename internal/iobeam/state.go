package iobeam

// ConnectionState is the lifecycle state of the connection worker.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	// StateStopped is entered once Shutdown has been requested.
	StateStopped
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Stats is a consistent point-in-time view of the worker.
// It is a value type, safe to use after the lock is released.
type Stats struct {
	State           ConnectionState
	InterlockClosed bool
	OpenChannels    []int

	Connects         int // successful connects
	Disconnects      int // DISCONNECT events fired
	LinesRead        int
	ParseFailures    int // total, not consecutive
	ForcedReconnects int // connections dropped for sustained parse failures

	// EventCounts is keyed by event name.
	EventCounts map[string]int
}
