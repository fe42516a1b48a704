// Package protocol parses the line-oriented iobeam wire format.
// It is pure: no I/O, no state.
package protocol

import "fmt"

// Topic identifies the hardware subsystem a message belongs to.
type Topic string

const (
	TopicOneButton Topic = "onebtn"
	TopicInterlock Topic = "intlk"
)

// Subtype identifies what happened on a topic.
type Subtype string

const (
	SubtypePress   Subtype = "pr"
	SubtypeDown    Subtype = "dn"
	SubtypeRelease Subtype = "rl"
	SubtypeOpen    Subtype = "op"
	SubtypeClose   Subtype = "cl"
)

// Message is a single parsed line.
type Message struct {
	Topic   Topic
	Subtype Subtype
	// Channel is only meaningful for TopicInterlock.
	Channel int
	// Value holds elapsed/hold seconds for button DOWN and RELEASE.
	Value    float64
	HasValue bool
}

func (m Message) String() string {
	switch {
	case m.Topic == TopicInterlock:
		return fmt.Sprintf("%s:%d:%s", m.Topic, m.Channel, m.Subtype)
	case m.HasValue:
		return fmt.Sprintf("%s:%s:%g", m.Topic, m.Subtype, m.Value)
	default:
		return fmt.Sprintf("%s:%s", m.Topic, m.Subtype)
	}
}
