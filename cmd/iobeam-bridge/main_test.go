package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/iobeam-bridge/internal/iobeam"
	"github.com/sweeney/iobeam-bridge/internal/mqtt"
	"github.com/sweeney/iobeam-bridge/internal/status"
)

// --- flag tests ---

func TestParseFlagsDefaults(t *testing.T) {
	cfg, printConfig, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if printConfig {
		t.Error("print-config should default to false")
	}
	if cfg.SocketPath != "/tmp/mrbeam_iobeam.sock" {
		t.Errorf("SocketPath: got %q", cfg.SocketPath)
	}
	if !cfg.MQTT.Enabled {
		t.Error("MQTT should be enabled by default")
	}
}

func TestParseFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	body := "socket_path: /run/from-file.sock\nreconnect_delay: 5s\nhttp_addr: \":9000\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := parseFlags([]string{"-config", path, "-socket", "/run/from-flag.sock", "-no-mqtt"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	// Explicit flag beats the file.
	if cfg.SocketPath != "/run/from-flag.sock" {
		t.Errorf("SocketPath: got %q", cfg.SocketPath)
	}
	// File beats the flag default when the flag is not given.
	if cfg.ReconnectDelay != 5*time.Second {
		t.Errorf("ReconnectDelay: got %v, want 5s", cfg.ReconnectDelay)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr: got %q", cfg.HTTPAddr)
	}
	if cfg.MQTT.Enabled {
		t.Error("expected -no-mqtt to disable MQTT")
	}
}

func TestParseFlagsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero reconnect delay", []string{"-reconnect-delay", "0s"}},
		{"empty socket", []string{"-socket", ""}},
		{"unknown flag", []string{"-nope"}},
		{"missing config file", []string{"-config", "/nonexistent/bridge.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := parseFlags(tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// --- runLoop tests ---

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// fakeSource hands out scripted stats and records Shutdown.
type fakeSource struct {
	mu       sync.Mutex
	stats    iobeam.Stats
	calls    int
	shutdown bool
}

func (f *fakeSource) Stats() iobeam.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	st := f.stats
	if f.shutdown {
		st.State = iobeam.StateStopped
	}
	return st
}

func (f *fakeSource) Shutdown() {
	f.mu.Lock()
	f.shutdown = true
	f.mu.Unlock()
}

type loopTicks struct {
	stats     int
	heartbeat int
}

// runRunLoop drives runLoop with the given ticks and signal, returning the
// error from runLoop.
func runRunLoop(t *testing.T, src source, pub *mqtt.FakePublisher, tracker *status.Tracker, ticks loopTicks, signal os.Signal) error {
	t.Helper()
	statsTick := make(chan time.Time)
	heartbeatTick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Minute)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(src, pub, pub, tracker, clock, statsTick, heartbeatTick, sig)
	}()

	for i := 0; i < ticks.stats; i++ {
		statsTick <- time.Time{}
	}
	for i := 0; i < ticks.heartbeat; i++ {
		heartbeatTick <- time.Time{}
	}
	sig <- signal

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("runLoop did not return after signal")
		return nil
	}
}

func newTracker() *status.Tracker {
	return status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{Broker: "tcp://test:1883"})
}

func decodeStatus(t *testing.T, payload []byte) status.StatusInner {
	t.Helper()
	var sj status.StatusJSON
	if err := json.Unmarshal(payload, &sj); err != nil {
		t.Fatalf("invalid status JSON: %v\n%s", err, payload)
	}
	return sj.Status
}

func TestRunLoopShutdownOnly(t *testing.T) {
	src := &fakeSource{stats: iobeam.Stats{State: iobeam.StateConnected, InterlockClosed: true}}
	pub := mqtt.NewFakePublisher()

	if err := runRunLoop(t, src, pub, newTracker(), loopTicks{}, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if !src.shutdown {
		t.Error("expected handler Shutdown on signal")
	}

	sys := pub.SystemEvents()
	if len(sys) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(sys))
	}
	if sys[0].Event != "SHUTDOWN" || sys[0].Reason != "SIGTERM" || !sys[0].Retained {
		t.Errorf("unexpected shutdown event: %+v", sys[0])
	}

	inner := decodeStatus(t, sys[0].RawPayload)
	if inner.Event != "SHUTDOWN" || inner.Reason != "SIGTERM" {
		t.Errorf("payload event/reason: got %q/%q", inner.Event, inner.Reason)
	}
	if inner.Connection != "STOPPED" {
		t.Errorf("Connection: got %q, want STOPPED", inner.Connection)
	}
	if len(pub.Events()) != 0 {
		t.Errorf("runLoop should not publish iobeam events itself, got %d", len(pub.Events()))
	}
}

func TestRunLoopSignalNames(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			pub := mqtt.NewFakePublisher()
			runRunLoop(t, &fakeSource{}, pub, newTracker(), loopTicks{}, tt.sig)

			sys := pub.SystemEvents()
			if len(sys) != 1 || sys[0].Reason != tt.want {
				t.Errorf("got %+v, want reason %s", sys, tt.want)
			}
		})
	}
}

func TestRunLoopStatsTickUpdatesTracker(t *testing.T) {
	src := &fakeSource{stats: iobeam.Stats{
		State:           iobeam.StateConnected,
		InterlockClosed: false,
		OpenChannels:    []int{1},
		Connects:        3,
	}}
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	tracker := newTracker()

	if err := runRunLoop(t, src, pub, tracker, loopTicks{stats: 3}, syscall.SIGINT); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	snap := tracker.Snapshot()
	if snap.IOBeam.Connects != 3 {
		t.Errorf("Connects: got %d, want 3", snap.IOBeam.Connects)
	}
	if snap.IOBeam.InterlockClosed {
		t.Error("expected interlock open in tracker")
	}
	if !snap.MQTTConnected {
		t.Error("expected MQTT connected in tracker")
	}
	// 3 stats ticks plus the final refresh at shutdown.
	if src.calls != 4 {
		t.Errorf("Stats calls: got %d, want 4", src.calls)
	}
	if n := len(pub.SystemEvents()); n != 1 {
		t.Errorf("stats ticks should not publish, got %d system events", n)
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	src := &fakeSource{stats: iobeam.Stats{
		State:           iobeam.StateConnected,
		InterlockClosed: true,
		ParseFailures:   2,
		EventCounts:     map[string]int{iobeam.EventConnect: 1},
	}}
	pub := mqtt.NewFakePublisher()

	if err := runRunLoop(t, src, pub, newTracker(), loopTicks{heartbeat: 2}, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	sys := pub.SystemEvents()
	if len(sys) != 3 {
		t.Fatalf("expected 2 heartbeats + shutdown, got %d", len(sys))
	}
	for i := 0; i < 2; i++ {
		if sys[i].Event != "HEARTBEAT" {
			t.Errorf("event %d: got %s, want HEARTBEAT", i, sys[i].Event)
		}
		if sys[i].Retained {
			t.Errorf("heartbeat %d should not be retained", i)
		}
		inner := decodeStatus(t, sys[i].RawPayload)
		if inner.Event != "HEARTBEAT" || inner.Connection != "CONNECTED" {
			t.Errorf("heartbeat %d payload: event=%q connection=%q", i, inner.Event, inner.Connection)
		}
		if inner.Socket.ParseFailures != 2 || inner.Counts[iobeam.EventConnect] != 1 {
			t.Errorf("heartbeat %d counters: %+v %v", i, inner.Socket, inner.Counts)
		}
	}
	if !sys[1].Timestamp.After(sys[0].Timestamp) {
		t.Errorf("heartbeat timestamps should advance: %v, %v", sys[0].Timestamp, sys[1].Timestamp)
	}
	if sys[2].Event != "SHUTDOWN" {
		t.Errorf("last event: got %s, want SHUTDOWN", sys[2].Event)
	}
}

func TestRunLoopPublishErrorsAreNotFatal(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.PublishSystemError = os.ErrClosed

	err := runRunLoop(t, &fakeSource{}, pub, newTracker(), loopTicks{stats: 1, heartbeat: 1}, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
}
