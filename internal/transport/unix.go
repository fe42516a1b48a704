package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
)

// UnixTransport reads lines from a Unix domain stream socket.
type UnixTransport struct {
	path string

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewUnixTransport creates a transport for the socket at path. No connection
// is made until Connect is called.
func NewUnixTransport(path string) *UnixTransport {
	return &UnixTransport{path: path}
}

// Path returns the socket path.
func (t *UnixTransport) Path() string {
	return t.path
}

// Connect dials the socket. A previous connection, if any, is closed.
func (t *UnixTransport) Connect() error {
	conn, err := net.Dial("unix", t.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnect, t.path, err)
	}

	t.mu.Lock()
	old := t.conn
	t.conn = conn
	t.reader = bufio.NewReaderSize(conn, MaxLineLength)
	t.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// ReadLine returns the next newline-terminated line, stripped of "\n" and any
// trailing "\r". A partial line left when the peer hangs up is discarded.
func (t *UnixTransport) ReadLine() (string, error) {
	t.mu.Lock()
	r := t.reader
	t.mu.Unlock()
	if r == nil {
		return "", ErrNotConnected
	}

	b, err := r.ReadSlice('\n')
	if err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return "", ErrEndOfStream
		case errors.Is(err, bufio.ErrBufferFull):
			return "", ErrLineTooLong
		default:
			return "", fmt.Errorf("transport: read: %w", err)
		}
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// Close closes the current connection, if any.
func (t *UnixTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.reader = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("transport: close: %w", err)
	}
	return nil
}
