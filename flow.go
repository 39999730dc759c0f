package http2

import (
	"sync"
)

// Window is a flow-control credit counter. One exists per direction per
// stream and one per direction for the connection itself.
//
// A Window never refills on its own; credit comes back through Expand,
// driven by WINDOW_UPDATE frames, drains through Consume, driven by DATA
// frames, and shifts by the size delta through SetCapacity, driven by
// SETTINGS.
type Window struct {
	mu        sync.Mutex
	capacity  int32
	available int32
}

// NewWindow returns a Window with size octets of credit.
func NewWindow(size int32) *Window {
	return &Window{
		capacity:  size,
		available: size,
	}
}

// Available returns the remaining credit. It may be negative after the
// initial window size shrinks mid-stream.
func (w *Window) Available() int32 {
	w.mu.Lock()
	n := w.available
	w.mu.Unlock()
	return n
}

// Capacity returns the last-set initial size.
func (w *Window) Capacity() int32 {
	w.mu.Lock()
	n := w.capacity
	w.mu.Unlock()
	return n
}

// Consume subtracts n octets of credit. The balance may go negative;
// Exhausted reports that and the caller must withhold further frames
// until the window is expanded.
func (w *Window) Consume(n int32) {
	w.mu.Lock()
	w.available -= n
	w.mu.Unlock()
}

// Expand adds n octets of credit. If the result would exceed 2^31-1 the
// window is left unchanged and a FlowControlError is returned.
func (w *Window) Expand(n int32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if int64(w.available)+int64(n) > maxWindowSize {
		return NewError(FlowControlError, "window update overflows the window")
	}

	w.available += n

	return nil
}

// SetCapacity re-bases the window on a new initial size, adjusting the
// available credit by the difference as RFC 7540 6.9.2 requires.
func (w *Window) SetCapacity(size int32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	delta := size - w.capacity
	if int64(w.available)+int64(delta) > maxWindowSize {
		return NewError(FlowControlError, "window re-base overflows the window")
	}

	w.capacity = size
	w.available += delta

	return nil
}

// Limited returns true if any credit has been consumed and not yet refilled.
func (w *Window) Limited() bool {
	w.mu.Lock()
	limited := w.available < w.capacity
	w.mu.Unlock()
	return limited
}

// Exhausted returns true once the balance is negative; a zero balance still
// admits zero-length DATA.
func (w *Window) Exhausted() bool {
	w.mu.Lock()
	exhausted := w.available < 0
	w.mu.Unlock()
	return exhausted
}
