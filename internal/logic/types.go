// Package logic contains the pure interlock state logic of the bridge.
// This package has NO external dependencies (no sockets, MQTT, GPIO or OS).
package logic

// Edge is an aggregate interlock transition.
type Edge string

const (
	// EdgeOpen fires when the first channel of an episode opens.
	EdgeOpen Edge = "OPEN"
	// EdgeClosed fires when the last open channel closes.
	EdgeClosed Edge = "CLOSED"
)
