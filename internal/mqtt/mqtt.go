// Package mqtt republishes iobeam events to an MQTT broker, with an
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/iobeam-bridge/internal/bus"
)

// Topic is the MQTT topic for button and interlock events.
const Topic = "mrbeam/iobeam/events"

// TopicSystem is the MQTT topic for bridge lifecycle events.
const TopicSystem = "mrbeam/iobeam/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends one bus event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event bus.Event) error

	// PublishSystem sends a lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a bridge lifecycle event (STARTUP, HEARTBEAT, SHUTDOWN).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // pre-formatted status JSON; returned as-is by FormatSystemPayload
	Retained   bool
}

// Payload is the JSON envelope for an iobeam event.
type Payload struct {
	IOBeam EventPayload `json:"iobeam"`
}

// EventPayload contains the event details. Value is set for button DOWN and
// RELEASED (seconds held).
type EventPayload struct {
	Timestamp string   `json:"timestamp"`
	Event     string   `json:"event"`
	Value     *float64 `json:"value,omitempty"`
}

// FormatPayload creates the JSON payload for a bus event.
func FormatPayload(event bus.Event) ([]byte, error) {
	p := Payload{
		IOBeam: EventPayload{
			Timestamp: event.Time.UTC().Format(time.RFC3339Nano),
			Event:     event.Name,
		},
	}
	if v, ok := event.Payload.(float64); ok {
		p.IOBeam.Value = &v
	}
	return json.Marshal(p)
}

// SystemPayload is the payload for simple system events that carry no
// status snapshot (the LWT, for instance).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

// NopPublisher discards everything. It stands in when MQTT is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(bus.Event) error         { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }
