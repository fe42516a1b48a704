package gpio

import (
	"log"

	"github.com/sweeney/iobeam-bridge/internal/bus"
	"github.com/sweeney/iobeam-bridge/internal/iobeam"
)

// Indicator lights an LED while any interlock is open.
type Indicator struct {
	w Writer
}

// NewIndicator creates an Indicator driving w. initialOpen sets the LED to
// match the interlock state known at startup.
func NewIndicator(w Writer, initialOpen bool) *Indicator {
	ind := &Indicator{w: w}
	ind.set(initialOpen)
	return ind
}

// Attach subscribes the indicator to interlock edges on b.
func (ind *Indicator) Attach(b *bus.Bus) {
	b.Subscribe(iobeam.EventInterlockOpen, ind.Handle)
	b.Subscribe(iobeam.EventInterlockClosed, ind.Handle)
}

// Handle updates the LED for an interlock edge. Other events are ignored;
// the LED keeps showing the last known state while disconnected.
func (ind *Indicator) Handle(e bus.Event) {
	switch e.Name {
	case iobeam.EventInterlockOpen:
		ind.set(true)
	case iobeam.EventInterlockClosed:
		ind.set(false)
	}
}

func (ind *Indicator) set(on bool) {
	if err := ind.w.Set(on); err != nil {
		log.Printf("gpio: indicator: %v", err)
	}
}
