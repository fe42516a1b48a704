package logic

import "sort"

// Interlocks tracks the open/closed state of every interlock channel seen so
// far and reports aggregate edges. A channel never observed counts as closed.
//
// Not safe for concurrent use. The caller owns synchronization.
type Interlocks struct {
	open      map[int]bool
	openCount int
}

// NewInterlocks returns a table with every channel closed.
func NewInterlocks() *Interlocks {
	return &Interlocks{open: make(map[int]bool)}
}

// Apply records a transition on one channel and returns the aggregate edge it
// caused, or nil if the aggregate state did not change.
//
// Only the first open and the last close of a hazard episode produce an edge.
// Re-opening an open channel, closing a closed one, or closing one channel
// while another stays open all return nil.
func (t *Interlocks) Apply(channel int, isOpen bool) *Edge {
	wasClosed := t.openCount == 0

	prev := t.open[channel]
	switch {
	case isOpen && !prev:
		t.openCount++
	case !isOpen && prev:
		t.openCount--
	}
	t.open[channel] = isOpen

	nowClosed := t.openCount == 0
	switch {
	case wasClosed && !nowClosed:
		e := EdgeOpen
		return &e
	case !wasClosed && nowClosed:
		e := EdgeClosed
		return &e
	}
	return nil
}

// AllClosed reports whether every known channel is closed.
func (t *Interlocks) AllClosed() bool {
	return t.openCount == 0
}

// OpenChannels returns the currently open channels in ascending order.
func (t *Interlocks) OpenChannels() []int {
	var chans []int
	for ch, open := range t.open {
		if open {
			chans = append(chans, ch)
		}
	}
	sort.Ints(chans)
	return chans
}

// Known returns the number of channels observed at least once.
func (t *Interlocks) Known() int {
	return len(t.open)
}
