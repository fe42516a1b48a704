// Package metrics exposes iobeam handler statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sweeney/iobeam-bridge/internal/iobeam"
)

const (
	namespace = "iobeam"
	subsystem = "bridge"
)

// StatsSource provides a consistent stats snapshot. *iobeam.Handler
// satisfies it.
type StatsSource interface {
	Stats() iobeam.Stats
}

// Collector turns one Stats snapshot per scrape into Prometheus metrics, so
// every scrape is internally consistent.
type Collector struct {
	src StatsSource

	connected       *prometheus.Desc
	state           *prometheus.Desc
	interlockClosed *prometheus.Desc
	openInterlocks  *prometheus.Desc
	events          *prometheus.Desc
	connects        *prometheus.Desc
	disconnects     *prometheus.Desc
	linesRead       *prometheus.Desc
	parseFailures   *prometheus.Desc
	forced          *prometheus.Desc
}

// NewCollector creates a Collector reading from src.
func NewCollector(src StatsSource) *Collector {
	name := func(n string) string { return prometheus.BuildFQName(namespace, subsystem, n) }
	return &Collector{
		src: src,
		connected: prometheus.NewDesc(name("connected"),
			"Whether the iobeam socket is connected (1) or not (0).", nil, nil),
		state: prometheus.NewDesc(name("connection_state"),
			"Current connection state; the series with value 1 is active.", []string{"state"}, nil),
		interlockClosed: prometheus.NewDesc(name("interlock_closed"),
			"Whether every known interlock is closed (1) or at least one is open (0).", nil, nil),
		openInterlocks: prometheus.NewDesc(name("open_interlocks"),
			"Number of interlock channels currently open.", nil, nil),
		events: prometheus.NewDesc(name("events_total"),
			"Events fired, by event name.", []string{"event"}, nil),
		connects: prometheus.NewDesc(name("connects_total"),
			"Successful socket connects.", nil, nil),
		disconnects: prometheus.NewDesc(name("disconnects_total"),
			"Disconnects reported to subscribers.", nil, nil),
		linesRead: prometheus.NewDesc(name("lines_read_total"),
			"Lines read from the socket.", nil, nil),
		parseFailures: prometheus.NewDesc(name("parse_failures_total"),
			"Lines that could not be parsed.", nil, nil),
		forced: prometheus.NewDesc(name("forced_reconnects_total"),
			"Connections dropped because of sustained parse failures.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connected
	ch <- c.state
	ch <- c.interlockClosed
	ch <- c.openInterlocks
	ch <- c.events
	ch <- c.connects
	ch <- c.disconnects
	ch <- c.linesRead
	ch <- c.parseFailures
	ch <- c.forced
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()

	ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, boolFloat(st.State == iobeam.StateConnected))
	for _, s := range []iobeam.ConnectionState{
		iobeam.StateDisconnected, iobeam.StateConnecting, iobeam.StateConnected, iobeam.StateStopped,
	} {
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, boolFloat(st.State == s), s.String())
	}
	ch <- prometheus.MustNewConstMetric(c.interlockClosed, prometheus.GaugeValue, boolFloat(st.InterlockClosed))
	ch <- prometheus.MustNewConstMetric(c.openInterlocks, prometheus.GaugeValue, float64(len(st.OpenChannels)))

	for _, name := range iobeam.Events {
		ch <- prometheus.MustNewConstMetric(c.events, prometheus.CounterValue, float64(st.EventCounts[name]), name)
	}
	ch <- prometheus.MustNewConstMetric(c.connects, prometheus.CounterValue, float64(st.Connects))
	ch <- prometheus.MustNewConstMetric(c.disconnects, prometheus.CounterValue, float64(st.Disconnects))
	ch <- prometheus.MustNewConstMetric(c.linesRead, prometheus.CounterValue, float64(st.LinesRead))
	ch <- prometheus.MustNewConstMetric(c.parseFailures, prometheus.CounterValue, float64(st.ParseFailures))
	ch <- prometheus.MustNewConstMetric(c.forced, prometheus.CounterValue, float64(st.ForcedReconnects))
}

// NewRegistry returns a registry holding c plus the Go runtime and process
// collectors.
func NewRegistry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
