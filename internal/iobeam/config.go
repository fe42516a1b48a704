package iobeam

import (
	"time"

	"github.com/sweeney/iobeam-bridge/internal/transport"
)

// Config controls the connection worker.
type Config struct {
	// SocketPath is informational (logs, status); the transport owns the dial.
	SocketPath string

	// ReconnectDelay is waited after a failed connect and after every
	// disconnect before trying again.
	ReconnectDelay time.Duration

	// MaxConsecutiveParseFailures is the number of consecutive unparseable
	// lines tolerated. The next one drops the connection. Negative disables
	// the check.
	MaxConsecutiveParseFailures int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SocketPath:                  transport.DefaultSocketPath,
		ReconnectDelay:              1 * time.Second,
		MaxConsecutiveParseFailures: 5,
	}
}
