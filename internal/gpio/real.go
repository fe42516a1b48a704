//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealWriter drives an output line through the Linux GPIO character device.
type RealWriter struct {
	line *gpiocdev.Line
	pin  int
}

// NewRealWriter requests pin on chip as an output, initially off.
func NewRealWriter(chip string, pin int) (*RealWriter, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("iobeam-bridge"))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d on %s: %w", pin, chip, err)
	}
	return &RealWriter{line: line, pin: pin}, nil
}

// Set drives the line high for on, low for off.
func (w *RealWriter) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := w.line.SetValue(v); err != nil {
		return fmt.Errorf("set pin %d: %w", w.pin, err)
	}
	return nil
}

// Close switches the LED off and hands the pin back as an input with
// pull-down, matching the Pi boot default.
func (w *RealWriter) Close() error {
	var errs []error
	if err := w.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("clear pin %d: %w", w.pin, err))
	}
	if err := w.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", w.pin, err))
	}
	if err := w.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", w.pin, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
