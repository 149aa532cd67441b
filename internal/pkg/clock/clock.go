package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time for trial and renewal computations
type Clock interface {
	Now() time.Time
}

// Real returns the system clock in UTC
type Real struct{}

// Now returns the current UTC time
func (Real) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a manually controlled clock used by tests and replay tooling
type Fixed struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFixed creates a clock frozen at now
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

// Now returns the frozen time
func (f *Fixed) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

// Set moves the clock to t
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
