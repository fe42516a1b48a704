package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/iobeam-bridge/internal/iobeam"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Connection    string         `json:"connection"`
	Interlock     string         `json:"interlock"`
	OpenChannels  []int          `json:"open_channels"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Socket        SocketJSON     `json:"socket"`
	Counts        map[string]int `json:"event_counts"`
	Config        ConfigJSON     `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// SocketJSON holds connection counters for the iobeam socket.
type SocketJSON struct {
	Connects         int `json:"connects"`
	Disconnects      int `json:"disconnects"`
	LinesRead        int `json:"lines_read"`
	ParseFailures    int `json:"parse_failures"`
	ForcedReconnects int `json:"forced_reconnects"`
}

// ConfigJSON is the JSON representation of bridge config.
type ConfigJSON struct {
	SocketPath       string `json:"socket_path"`
	ReconnectDelayMs int64  `json:"reconnect_delay_ms"`
	MaxParseFailures int    `json:"max_consecutive_parse_failures"`
	HeartbeatMs      int64  `json:"heartbeat_ms"`
	Broker           string `json:"broker"`
	HTTPAddr         string `json:"http_addr"`
}

// InterlockLabel renders the aggregate interlock state.
func InterlockLabel(closed bool) string {
	if closed {
		return "CLOSED"
	}
	return "OPEN"
}

func buildInner(snap Snapshot) StatusInner {
	st := snap.IOBeam

	open := st.OpenChannels
	if open == nil {
		open = []int{}
	}
	counts := make(map[string]int, len(iobeam.Events))
	for _, name := range iobeam.Events {
		counts[name] = st.EventCounts[name]
	}

	return StatusInner{
		Connection:    st.State.String(),
		Interlock:     InterlockLabel(st.InterlockClosed),
		OpenChannels:  open,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Socket: SocketJSON{
			Connects:         st.Connects,
			Disconnects:      st.Disconnects,
			LinesRead:        st.LinesRead,
			ParseFailures:    st.ParseFailures,
			ForcedReconnects: st.ForcedReconnects,
		},
		Counts: counts,
		Config: ConfigJSON{
			SocketPath:       snap.Config.SocketPath,
			ReconnectDelayMs: snap.Config.ReconnectDelayMs,
			MaxParseFailures: snap.Config.MaxConsecutiveParseFailures,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			Broker:           snap.Config.Broker,
			HTTPAddr:         snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
