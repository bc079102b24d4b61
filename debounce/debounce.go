// Package debounce delays a callback until input has been quiet for an
// interval.
package debounce

import (
	"sync"
	"time"
)

// Debouncer calls fn with the most recent value once no new value has been
// triggered for the configured interval.
type Debouncer struct {
	interval time.Duration
	fn       func(string)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	armed   bool
	gen     uint64
	stopped bool
}

// New creates a Debouncer. A non-positive interval fires on the next
// scheduler tick.
func New(interval time.Duration, fn func(string)) *Debouncer {
	return &Debouncer{interval: interval, fn: fn}
}

// Trigger records value and restarts the quiet period
func (d *Debouncer) Trigger(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.stopTimerLocked()
	d.pending = value
	d.armed = true
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.interval, func() { d.fire(gen) })
}

// Cancel drops the pending value without calling fn
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopTimerLocked()
	d.armed = false
	d.gen++
}

// Flush calls fn immediately with the pending value, if any, and reports
// whether it did.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if !d.armed || d.stopped {
		d.mu.Unlock()
		return false
	}
	d.stopTimerLocked()
	value := d.pending
	d.armed = false
	d.gen++
	d.mu.Unlock()

	d.fn(value)
	return true
}

// Pending reports whether a call is scheduled
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

// Stop cancels any pending call and ignores later triggers
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopTimerLocked()
	d.armed = false
	d.stopped = true
	d.gen++
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// a timer that already fired cannot be stopped, so stale callbacks check the generation
	if gen != d.gen || !d.armed {
		d.mu.Unlock()
		return
	}
	value := d.pending
	d.armed = false
	d.timer = nil
	d.mu.Unlock()

	d.fn(value)
}

func (d *Debouncer) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
