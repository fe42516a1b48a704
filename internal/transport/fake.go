package transport

import (
	"errors"
	"sync"
)

// FakeTransport is a test double that plays scripted lines.
// Each successful Connect starts a new session; lines sent to an earlier
// session are never seen by a later one, like bytes in a dropped socket.
// Safe for concurrent use.
type FakeTransport struct {
	mu       sync.Mutex
	session  *fakeSession
	refuse   bool
	connects int
	closes   int

	// connected is signalled (non-blocking) after every successful Connect.
	connected chan struct{}
}

type fakeSession struct {
	lines  chan string
	eof    chan struct{}
	closed chan struct{}

	eofOnce   sync.Once
	closeOnce sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		lines:  make(chan string, 256),
		eof:    make(chan struct{}),
		closed: make(chan struct{}),
	}
}

// NewFakeTransport creates a FakeTransport that accepts connections.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{connected: make(chan struct{}, 16)}
}

// SetRefuse makes subsequent Connect calls fail (peer absent) or succeed.
func (f *FakeTransport) SetRefuse(refuse bool) {
	f.mu.Lock()
	f.refuse = refuse
	f.mu.Unlock()
}

// Connect starts a new session unless refusing.
func (f *FakeTransport) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.refuse {
		return errors.Join(ErrConnect, errors.New("fake: connection refused"))
	}
	if f.session != nil {
		f.session.close()
	}
	f.session = newFakeSession()
	f.connects++

	select {
	case f.connected <- struct{}{}:
	default:
	}
	return nil
}

// Connected returns a channel that receives once per successful Connect.
func (f *FakeTransport) Connected() <-chan struct{} {
	return f.connected
}

// Send queues a line on the current session. It reports false when there
// is no open session.
func (f *FakeTransport) Send(line string) bool {
	f.mu.Lock()
	s := f.session
	f.mu.Unlock()
	if s == nil {
		return false
	}
	select {
	case <-s.closed:
		return false
	case s.lines <- line:
		return true
	}
}

// Hangup ends the current session as if the peer closed the socket.
// Lines already queued are still delivered before ErrEndOfStream.
func (f *FakeTransport) Hangup() {
	f.mu.Lock()
	s := f.session
	f.mu.Unlock()
	if s != nil {
		s.eofOnce.Do(func() { close(s.eof) })
	}
}

// ReadLine returns the next queued line of the current session.
func (f *FakeTransport) ReadLine() (string, error) {
	f.mu.Lock()
	s := f.session
	f.mu.Unlock()
	if s == nil {
		return "", ErrNotConnected
	}

	select {
	case line := <-s.lines:
		return line, nil
	case <-s.closed:
		return "", ErrNotConnected
	case <-s.eof:
		// Drain what the peer wrote before hanging up.
		select {
		case line := <-s.lines:
			return line, nil
		default:
			return "", ErrEndOfStream
		}
	}
}

// Close ends the current session.
func (f *FakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closes++
	if f.session != nil {
		f.session.close()
		f.session = nil
	}
	return nil
}

// Connects returns the number of successful Connect calls.
func (f *FakeTransport) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

// Closes returns the number of Close calls.
func (f *FakeTransport) Closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// IsOpen reports whether a session is currently open.
func (f *FakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session != nil
}

func (s *fakeSession) close() {
	s.closeOnce.Do(func() { close(s.closed) })
}
