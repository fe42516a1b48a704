// Package transport turns the iobeam socket byte stream into lines.
// The real implementation dials a local Unix domain socket.
// The fake implementation allows testing without a peer.
package transport

import "errors"

// DefaultSocketPath is where iobeam listens on a Mr Beam control board.
const DefaultSocketPath = "/tmp/mrbeam_iobeam.sock"

// MaxLineLength bounds a single line, newline included.
const MaxLineLength = 4096

var (
	// ErrConnect wraps any failure to open the socket.
	ErrConnect = errors.New("transport: connect failed")

	// ErrEndOfStream is returned by ReadLine when the peer closed the connection.
	ErrEndOfStream = errors.New("transport: end of stream")

	// ErrNotConnected is returned by ReadLine before Connect or after Close.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrLineTooLong is returned when the peer sends more than MaxLineLength
	// bytes without a newline.
	ErrLineTooLong = errors.New("transport: line too long")
)

// Transport is a line-oriented client connection.
// Retry policy is the caller's job.
type Transport interface {
	// Connect opens a new connection, replacing any previous one.
	// Errors wrap ErrConnect.
	Connect() error

	// ReadLine blocks until a full line is available and returns it without
	// the trailing newline. It returns ErrEndOfStream when the peer closes
	// the connection and a wrapped I/O error for anything else.
	ReadLine() (string, error)

	// Close releases the connection. It is idempotent and may be called
	// from another goroutine to unblock a pending ReadLine.
	Close() error
}
