package clock

import (
	"sync"
	"time"
)

// Clock stamps commands inside a session. Tests swap in a fixed clock.
type Clock interface {
	Now() time.Time
}

// DefaultClock reads the system clock.
type DefaultClock struct{}

func (DefaultClock) Now() time.Time {
	return time.Now()
}

// Fixed always returns the same instant until moved with Set or Advance.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixed) Set(now time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

func (f *Fixed) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	return f.now
}
