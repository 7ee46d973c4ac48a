// Package timer holds the single phase deadline of a session.
package timer

import (
	"sync"
	"time"
)

// Deadline is one re-armable timer. Every Arm bumps a generation number and
// the fire callback receives the generation it was armed with, so the owner
// can tell a stale fire from the current one.
type Deadline struct {
	mu    sync.Mutex
	gen   uint64
	t     *time.Timer
	armed bool
}

// Arm replaces any pending timer with one that calls fire after d.
func (dl *Deadline) Arm(d time.Duration, fire func(gen uint64)) uint64 {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if dl.t != nil {
		dl.t.Stop()
	}
	if d < 0 {
		d = 0
	}
	dl.gen++
	gen := dl.gen
	dl.armed = true
	dl.t = time.AfterFunc(d, func() { fire(gen) })
	return gen
}

// Current returns the generation of the most recent Arm or Stop.
func (dl *Deadline) Current() uint64 {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.gen
}

// IsCurrent reports whether gen belongs to a timer that is still armed.
func (dl *Deadline) IsCurrent(gen uint64) bool {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.armed && gen == dl.gen
}

// Stop cancels the pending timer. A fire already in flight is invalidated by
// the generation bump.
func (dl *Deadline) Stop() {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.t != nil {
		dl.t.Stop()
		dl.t = nil
	}
	dl.gen++
	dl.armed = false
}
