package persist

import (
	"sync"
	"time"
)

// timerHandle is the slice of *time.Timer the debouncer needs. Tests
// substitute a fake so the quiet period can elapse on demand.
type timerHandle interface {
	Stop() bool
}

// Debouncer coalesces bursts of mutation notifications into a single
// deferred fire. Only the most recent Schedule call's timer is live, so
// no fire happens while notifications keep arriving faster than the
// quiet period.
type Debouncer struct {
	mu    sync.Mutex
	quiet time.Duration
	start func(d time.Duration, fn func()) timerHandle
	fire  func()
	timer timerHandle
}

// NewDebouncer creates a debouncer that calls fire once the quiet
// period elapses with no further Schedule calls.
func NewDebouncer(quiet time.Duration, fire func()) *Debouncer {
	return &Debouncer{
		quiet: quiet,
		fire:  fire,
		start: func(d time.Duration, fn func()) timerHandle {
			return time.AfterFunc(d, fn)
		},
	}
}

// Schedule restarts the quiet-period timer.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.start(d.quiet, func() {
		d.mu.Lock()
		d.timer = nil
		d.mu.Unlock()
		d.fire()
	})
}

// Cancel drops any pending fire.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Flush cancels any pending timer and fires immediately, so a manual
// flush is not followed by a duplicate deferred write.
func (d *Debouncer) Flush() {
	d.Cancel()
	d.fire()
}
