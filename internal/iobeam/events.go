package iobeam

// Event names published on the sink.
const (
	EventOneButtonPressed  = "ONEBUTTON_PRESSED"
	EventOneButtonDown     = "ONEBUTTON_DOWN"
	EventOneButtonReleased = "ONEBUTTON_RELEASED"
	EventInterlockOpen     = "INTERLOCK_OPEN"
	EventInterlockClosed   = "INTERLOCK_CLOSED"
	EventConnect           = "CONNECT"
	EventDisconnect        = "DISCONNECT"
)

// Events lists every event name, in a stable order.
var Events = []string{
	EventOneButtonPressed,
	EventOneButtonDown,
	EventOneButtonReleased,
	EventInterlockOpen,
	EventInterlockClosed,
	EventConnect,
	EventDisconnect,
}

// Sink receives events. Fire is called synchronously from the connection
// worker, in the order the causing lines were read, and must not block for
// long. payload is nil or a float64 (seconds) for button DOWN/RELEASED.
type Sink interface {
	Fire(event string, payload any)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(event string, payload any)

// Fire calls f.
func (f SinkFunc) Fire(event string, payload any) {
	f(event, payload)
}
