// Package iobeam connects to the iobeam I/O daemon and republishes button and
// interlock signals as events.
//
// A Handler runs one background goroutine that connects to the socket,
// parses each line and fires events on a Sink. Lost connections and peers
// that keep sending garbage are recovered by reconnecting after a fixed
// delay; callers only ever see CONNECT and DISCONNECT events. Nothing here
// returns errors or panics after construction.
package iobeam

import "github.com/sweeney/iobeam-bridge/internal/transport"

// Handler is the caller-facing side of the connection worker.
type Handler struct {
	m *manager
}

// New starts a worker that reads from t and fires events on sink.
func New(t transport.Transport, sink Sink, cfg Config) *Handler {
	m := newManager(t, sink, cfg)
	go m.run()
	return &Handler{m: m}
}

// NewUnix starts a worker on the Unix socket at cfg.SocketPath.
func NewUnix(sink Sink, cfg Config) *Handler {
	return New(transport.NewUnixTransport(cfg.SocketPath), sink, cfg)
}

// IsInterlockClosed reports whether every interlock channel seen so far is
// closed. While disconnected it reports the last known state.
func (h *Handler) IsInterlockClosed() bool {
	return h.m.interlockClosed()
}

// State returns the current connection state.
func (h *Handler) State() ConnectionState {
	return h.m.currentState()
}

// Stats returns a consistent snapshot of connection and interlock state.
func (h *Handler) Stats() Stats {
	return h.m.snapshot()
}

// Shutdown stops the worker and blocks until it has exited and released the
// socket. It is idempotent and safe to call from any goroutine except from
// inside the Sink.
func (h *Handler) Shutdown() {
	h.m.shutdown()
}
