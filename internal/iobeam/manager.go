package iobeam

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/iobeam-bridge/internal/logic"
	"github.com/sweeney/iobeam-bridge/internal/protocol"
	"github.com/sweeney/iobeam-bridge/internal/transport"
)

// errProtocol marks a connection dropped because the peer kept sending
// lines that could not be parsed.
var errProtocol = errors.New("protocol violation")

// manager owns the transport and runs the connect/read/reconnect loop on a
// single goroutine. All mutation of state and interlocks happens on that
// goroutine under mu; other goroutines only read.
type manager struct {
	transport transport.Transport
	sink      Sink
	cfg       Config

	mu          sync.RWMutex
	state       ConnectionState
	interlocks  *logic.Interlocks
	connects    int
	disconnects int
	linesRead   int
	parseFails  int
	forced      int
	eventCounts map[string]int

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newManager(t transport.Transport, sink Sink, cfg Config) *manager {
	return &manager{
		transport:   t,
		sink:        sink,
		cfg:         cfg,
		state:       StateDisconnected,
		interlocks:  logic.NewInterlocks(),
		eventCounts: make(map[string]int),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (m *manager) run() {
	defer close(m.done)
	defer m.transport.Close()

	failing := false
	for {
		if m.stopping() {
			return
		}

		m.setState(StateConnecting)
		if err := m.transport.Connect(); err != nil {
			if !failing {
				log.Printf("iobeam: cannot connect to %s, retrying every %v: %v", m.cfg.SocketPath, m.cfg.ReconnectDelay, err)
				failing = true
			}
			m.setState(StateDisconnected)
			if !m.wait(m.cfg.ReconnectDelay) {
				return
			}
			continue
		}
		// Shutdown may have closed the transport while we were dialing.
		if m.stopping() {
			return
		}
		failing = false

		m.mu.Lock()
		m.setStateLocked(StateConnected)
		m.connects++
		m.mu.Unlock()
		log.Printf("iobeam: connected to %s", m.cfg.SocketPath)
		m.emit(EventConnect, nil)

		err := m.session()
		m.transport.Close()
		if m.stopping() {
			return
		}

		log.Printf("iobeam: connection lost: %v", err)
		m.mu.Lock()
		m.setStateLocked(StateDisconnected)
		m.disconnects++
		m.mu.Unlock()
		m.emit(EventDisconnect, nil)

		if !m.wait(m.cfg.ReconnectDelay) {
			return
		}
	}
}

// session reads and dispatches lines until the connection fails or the
// peer exceeds the parse failure tolerance.
func (m *manager) session() error {
	failures := 0
	for {
		line, err := m.transport.ReadLine()
		if err != nil {
			return err
		}
		if m.stopping() {
			return nil
		}

		msg, err := protocol.Parse(line)

		m.mu.Lock()
		m.linesRead++
		if err != nil {
			m.parseFails++
		}
		m.mu.Unlock()

		if err != nil {
			failures++
			log.Printf("iobeam: ignoring line (%d in a row): %v", failures, err)
			if m.cfg.MaxConsecutiveParseFailures >= 0 && failures > m.cfg.MaxConsecutiveParseFailures {
				m.mu.Lock()
				m.forced++
				m.mu.Unlock()
				return fmt.Errorf("%w: %d consecutive unparseable lines", errProtocol, failures)
			}
			continue
		}

		failures = 0
		m.dispatch(msg)
	}
}

func (m *manager) dispatch(msg protocol.Message) {
	switch msg.Topic {
	case protocol.TopicOneButton:
		switch msg.Subtype {
		case protocol.SubtypePress:
			m.emit(EventOneButtonPressed, nil)
		case protocol.SubtypeDown:
			m.emit(EventOneButtonDown, msg.Value)
		case protocol.SubtypeRelease:
			m.emit(EventOneButtonReleased, msg.Value)
		}

	case protocol.TopicInterlock:
		m.mu.Lock()
		edge := m.interlocks.Apply(msg.Channel, msg.Subtype == protocol.SubtypeOpen)
		m.mu.Unlock()

		if edge == nil {
			return
		}
		switch *edge {
		case logic.EdgeOpen:
			m.emit(EventInterlockOpen, nil)
		case logic.EdgeClosed:
			m.emit(EventInterlockClosed, nil)
		}
	}
}

// emit counts and fires an event. Nothing is fired once shutdown started.
func (m *manager) emit(event string, payload any) {
	if m.stopping() {
		return
	}
	m.mu.Lock()
	m.eventCounts[event]++
	m.mu.Unlock()

	m.sink.Fire(event, payload)
}

// wait sleeps for d. It returns false if shutdown was requested meanwhile.
func (m *manager) wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-m.stop:
		return false
	case <-timer.C:
		return true
	}
}

func (m *manager) stopping() bool {
	select {
	case <-m.stop:
		return true
	default:
		return false
	}
}

func (m *manager) setState(s ConnectionState) {
	m.mu.Lock()
	m.setStateLocked(s)
	m.mu.Unlock()
}

// setStateLocked never leaves StateStopped.
func (m *manager) setStateLocked(s ConnectionState) {
	if m.state == StateStopped {
		return
	}
	m.state = s
}

// shutdown stops the worker and waits for it. Closing the transport from
// here unblocks a pending ReadLine. Must not be called from the Sink.
func (m *manager) shutdown() {
	m.stopOnce.Do(func() {
		close(m.stop)
		m.mu.Lock()
		m.state = StateStopped
		m.mu.Unlock()
	})
	m.transport.Close()
	<-m.done
}

func (m *manager) interlockClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.interlocks.AllClosed()
}

func (m *manager) currentState() ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *manager) snapshot() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int, len(m.eventCounts))
	for k, v := range m.eventCounts {
		counts[k] = v
	}
	return Stats{
		State:            m.state,
		InterlockClosed:  m.interlocks.AllClosed(),
		OpenChannels:     m.interlocks.OpenChannels(),
		Connects:         m.connects,
		Disconnects:      m.disconnects,
		LinesRead:        m.linesRead,
		ParseFailures:    m.parseFails,
		ForcedReconnects: m.forced,
		EventCounts:      counts,
	}
}
