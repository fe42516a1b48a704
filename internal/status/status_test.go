package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/iobeam-bridge/internal/iobeam"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{SocketPath: "/tmp/x.sock", ReconnectDelayMs: 1000, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.ReconnectDelayMs != 1000 {
		t.Errorf("Config.ReconnectDelayMs: got %d, want 1000", snap.Config.ReconnectDelayMs)
	}
	if !snap.IOBeam.InterlockClosed {
		t.Error("expected interlock closed before any update")
	}
	if snap.IOBeam.State != iobeam.StateDisconnected {
		t.Errorf("State: got %v, want DISCONNECTED", snap.IOBeam.State)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(iobeam.Stats{
		State:           iobeam.StateConnected,
		InterlockClosed: false,
		OpenChannels:    []int{2},
		Connects:        1,
		EventCounts:     map[string]int{iobeam.EventInterlockOpen: 1},
	})

	snap := tr.Snapshot()
	if snap.IOBeam.State != iobeam.StateConnected {
		t.Errorf("State: got %v, want CONNECTED", snap.IOBeam.State)
	}
	if snap.IOBeam.InterlockClosed {
		t.Error("expected interlock open")
	}
	if snap.IOBeam.EventCounts[iobeam.EventInterlockOpen] != 1 {
		t.Errorf("EventCounts: got %v", snap.IOBeam.EventCounts)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Second)}
	if snap.Uptime() != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", snap.Uptime())
	}
}

func testSnapshot() Snapshot {
	start := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	return Snapshot{
		IOBeam: iobeam.Stats{
			State:            iobeam.StateConnected,
			InterlockClosed:  false,
			OpenChannels:     []int{0, 3},
			Connects:         2,
			Disconnects:      1,
			LinesRead:        40,
			ParseFailures:    6,
			ForcedReconnects: 1,
			EventCounts: map[string]int{
				iobeam.EventInterlockOpen: 2,
				iobeam.EventConnect:       2,
			},
		},
		StartTime:     start,
		Now:           start.Add(65*time.Second + 400*time.Millisecond),
		MQTTConnected: true,
		Config: Config{
			SocketPath:                  "/tmp/mrbeam_iobeam.sock",
			ReconnectDelayMs:            1000,
			MaxConsecutiveParseFailures: 5,
			HeartbeatMs:                 900000,
			Broker:                      "tcp://broker:1883",
			HTTPAddr:                    ":8080",
		},
	}
}

func TestFormatJSON(t *testing.T) {
	data := FormatJSON(testSnapshot())

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected no event/reason, got %q/%q", s.Event, s.Reason)
	}
	if s.Connection != "CONNECTED" {
		t.Errorf("Connection: got %q", s.Connection)
	}
	if s.Interlock != "OPEN" {
		t.Errorf("Interlock: got %q", s.Interlock)
	}
	if len(s.OpenChannels) != 2 || s.OpenChannels[1] != 3 {
		t.Errorf("OpenChannels: got %v", s.OpenChannels)
	}
	if s.UptimeSeconds != 65 {
		t.Errorf("UptimeSeconds: got %d, want 65", s.UptimeSeconds)
	}
	if s.StartTime != "2026-02-01T12:00:00Z" {
		t.Errorf("StartTime: got %q", s.StartTime)
	}
	if s.Socket.ForcedReconnects != 1 || s.Socket.LinesRead != 40 {
		t.Errorf("Socket: got %+v", s.Socket)
	}
	if s.Config.MaxParseFailures != 5 || s.Config.HTTPAddr != ":8080" {
		t.Errorf("Config: got %+v", s.Config)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("MQTT: got %+v", s.MQTT)
	}
}

func TestFormatJSONListsEveryEventCount(t *testing.T) {
	var parsed StatusJSON
	json.Unmarshal(FormatJSON(testSnapshot()), &parsed)

	if len(parsed.Status.Counts) != len(iobeam.Events) {
		t.Fatalf("expected %d counts, got %v", len(iobeam.Events), parsed.Status.Counts)
	}
	if parsed.Status.Counts[iobeam.EventDisconnect] != 0 {
		t.Errorf("DISCONNECT: got %d, want 0", parsed.Status.Counts[iobeam.EventDisconnect])
	}
	if parsed.Status.Counts[iobeam.EventConnect] != 2 {
		t.Errorf("CONNECT: got %d, want 2", parsed.Status.Counts[iobeam.EventConnect])
	}
}

func TestFormatJSONEmptyOpenChannels(t *testing.T) {
	snap := testSnapshot()
	snap.IOBeam.OpenChannels = nil
	snap.IOBeam.InterlockClosed = true

	data := string(FormatJSON(snap))
	if !strings.Contains(data, `"open_channels": []`) {
		t.Errorf("expected empty array, got:\n%s", data)
	}
	if !strings.Contains(data, `"interlock": "CLOSED"`) {
		t.Errorf("expected CLOSED interlock, got:\n%s", data)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "SHUTDOWN", "SIGTERM")

	if strings.Contains(string(data), "\n") {
		t.Error("status event should be compact")
	}
	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("got event=%q reason=%q", parsed.Status.Event, parsed.Status.Reason)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Update(iobeam.Stats{Connects: n*100 + j, InterlockClosed: j%2 == 0})
				tr.SetMQTTConnected(j%2 == 0)
			}
		}(i)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := tr.Snapshot()
				_ = FormatJSON(snap)
			}
		}()
	}
	wg.Wait()
}
