// Package gpio drives an interlock indicator LED with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// DefaultChip is the GPIO chip of the Raspberry Pi header.
const DefaultChip = "gpiochip0"

// Writer drives a single output line.
type Writer interface {
	// Set turns the output on (true) or off.
	Set(on bool) error

	// Close turns the output off and releases the line.
	Close() error
}
