// Package bus is the in-process event bus the iobeam handler fires into.
// Delivery is synchronous: Fire returns after every handler has run.
package bus

import (
	"log"
	"runtime/debug"
	"sync"
	"time"
)

// Event is a fired event as seen by subscribers.
type Event struct {
	Time    time.Time
	Name    string
	Payload any // nil or float64
}

// Handler handles one event.
type Handler func(Event)

const wildcard = "*"

// Bus fans out named events to subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Handler
	now  func() time.Time
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs: make(map[string][]Handler),
		now:  time.Now,
	}
}

// Subscribe registers h for one event name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	b.subs[name] = append(b.subs[name], h)
	b.mu.Unlock()
}

// SubscribeAll registers h for every event.
func (b *Bus) SubscribeAll(h Handler) {
	b.Subscribe(wildcard, h)
}

// Fire delivers an event to the handlers subscribed to name, then to the
// wildcard handlers, each group in registration order. A panicking handler
// is logged and skipped.
func (b *Bus) Fire(name string, payload any) {
	b.mu.RLock()
	specific := append([]Handler(nil), b.subs[name]...)
	all := append([]Handler(nil), b.subs[wildcard]...)
	b.mu.RUnlock()

	ev := Event{Time: b.now(), Name: name, Payload: payload}
	for _, h := range specific {
		safeCall(h, ev)
	}
	for _, h := range all {
		safeCall(h, ev)
	}
}

// Len returns the number of subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, hs := range b.subs {
		n += len(hs)
	}
	return n
}

func safeCall(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("bus: handler panicked on %s: %v\n%s", ev.Name, r, debug.Stack())
		}
	}()
	h(ev)
}
