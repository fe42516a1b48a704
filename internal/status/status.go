// Package status provides a thread-safe status tracker for the bridge.
// It is read by the HTTP handlers and by the heartbeat publisher.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/iobeam-bridge/internal/iobeam"
)

// Config contains bridge configuration for display.
type Config struct {
	SocketPath                  string
	ReconnectDelayMs            int64
	MaxConsecutiveParseFailures int
	HeartbeatMs                 int64
	Broker                      string
	HTTPAddr                    string
}

// Snapshot is a point-in-time view of bridge state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	IOBeam        iobeam.Stats
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the bridge started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable bridge state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			IOBeam:    iobeam.Stats{InterlockClosed: true},
		},
		now: time.Now,
	}
}

// Update stores the latest handler stats.
// Called from runLoop on every stats tick. stats must not be mutated
// afterwards; Handler.Stats already returns a private copy.
func (t *Tracker) Update(stats iobeam.Stats) {
	t.mu.Lock()
	t.snap.IOBeam = stats
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the bridge state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
