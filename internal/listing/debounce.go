package listing

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiescence window for search input.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer runs the most recently scheduled task after a quiet period.
// Scheduling cancels the previous task; only the last one may run.
type Debouncer struct {
	clock Clock
	delay time.Duration

	mu   sync.Mutex
	seq  uint64
	stop func() bool
}

// NewDebouncer creates a debouncer. A nil clock uses SystemClock.
func NewDebouncer(clock Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = SystemClock
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Schedule replaces any pending task with f. With no delay, f runs before
// Schedule returns.
func (d *Debouncer) Schedule(f func()) {
	d.mu.Lock()
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
	d.seq++
	seq := d.seq

	if d.delay <= 0 {
		d.mu.Unlock()
		f()
		return
	}
	d.stop = d.clock.AfterFunc(d.delay, func() { d.fire(seq, f) })
	d.mu.Unlock()
}

// fire runs f only if no task was scheduled or cancelled after it.
func (d *Debouncer) fire(seq uint64, f func()) {
	d.mu.Lock()
	if seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.stop = nil
	d.mu.Unlock()
	f()
}

// Cancel drops the pending task, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
	d.seq++
}

// Pending reports whether a task is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop != nil
}
