package logging

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Throttle limits a repeated diagnostic to one emission per interval. Calls
// that are swallowed are counted and reported with the next emission. It is
// safe for concurrent use.
type Throttle struct {
	sometimes  rate.Sometimes
	suppressed atomic.Int64
}

// NewThrottle returns a Throttle that lets the first call through and then at
// most one call per interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{sometimes: rate.Sometimes{First: 1, Interval: interval}}
}

// Do calls f if the throttle allows it. f receives how many calls were
// suppressed since the last time it ran.
func (t *Throttle) Do(f func(suppressed int64)) {
	ran := false
	t.sometimes.Do(func() {
		ran = true
		f(t.suppressed.Swap(0))
	})
	if !ran {
		t.suppressed.Add(1)
	}
}

// Suppressed returns the number of calls swallowed since the last emission.
func (t *Throttle) Suppressed() int64 {
	return t.suppressed.Load()
}
