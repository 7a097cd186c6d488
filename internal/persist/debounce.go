package persist

import (
	"sync"
	"time"

	"stakeboard/internal/domain"
)

// Debouncer coalesces bursts of state changes into one write of the last
// state, issued once Delay has passed without a newer change. Writes never
// overlap, and a write older than one already issued is dropped.
type Debouncer struct {
	Delay time.Duration
	Write func(domain.State)

	mu      sync.Mutex
	timer   *time.Timer
	pending *domain.State
	gen     uint64

	writeMu sync.Mutex
	written uint64
}

func NewDebouncer(delay time.Duration, write func(domain.State)) *Debouncer {
	return &Debouncer{Delay: delay, Write: write}
}

// Schedule replaces any pending state and restarts the quiet period.
func (d *Debouncer) Schedule(s domain.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = &s
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.Delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// a newer Schedule or a Flush already took over
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	s := *d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
	d.write(gen, s)
}

func (d *Debouncer) write(gen uint64, s domain.State) bool {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if gen <= d.written {
		return false
	}
	d.written = gen
	d.Write(s)
	return true
}

// Flush writes the pending state now, if any, and reports whether it did.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.pending == nil {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	s := *d.pending
	d.pending = nil
	d.gen++
	gen := d.gen
	d.mu.Unlock()
	return d.write(gen, s)
}

// Stop drops the pending state without writing it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	d.gen++
}

// Pending reports whether a write is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
