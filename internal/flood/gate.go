// Package flood rate-limits calls against upstream services with a sliding
// one-minute window.
package flood

import (
	"sync"
	"time"
)

// windowDuration is the fixed sliding window (always 1 minute).
const windowDuration = 60 * time.Second

// Gate allows at most limitPerMinute calls within any sliding one-minute
// window. A refused call does not consume a slot.
type Gate struct {
	limitPerMinute int
	now            func() time.Time

	mutex      sync.Mutex
	timestamps []time.Time
}

// New creates a Gate with the given per-minute limit. A non-positive limit
// disables the gate entirely.
func New(limitPerMinute int) *Gate {
	return &Gate{
		limitPerMinute: limitPerMinute,
		now:            time.Now,
		timestamps:     make([]time.Time, 0, max(limitPerMinute, 1)),
	}
}

// Allow reports whether a call may proceed now, and records it if so.
func (g *Gate) Allow() bool {
	if g.limitPerMinute <= 0 {
		return true
	}

	now := g.now()

	g.mutex.Lock()
	defer g.mutex.Unlock()

	windowStart := now.Add(-windowDuration)
	valid := g.timestamps[:0]
	for _, ts := range g.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	g.timestamps = valid

	if len(g.timestamps) >= g.limitPerMinute {
		return false
	}

	g.timestamps = append(g.timestamps, now)
	return true
}

// InFlight returns the number of calls counted in the current window.
func (g *Gate) InFlight() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	windowStart := g.now().Add(-windowDuration)
	n := 0
	for _, ts := range g.timestamps {
		if ts.After(windowStart) {
			n++
		}
	}
	return n
}
