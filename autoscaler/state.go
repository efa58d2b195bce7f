package autoscaler

import (
	"sync"
	"time"
)

// state guards the cooldown timestamp and the in-flight scale flag.
// The check and the claim happen under one lock so that at most one tick
// commits a scale action at a time.
type state struct {
	mu        sync.Mutex
	lastScale time.Time
	scaling   bool
}

func (s *state) coolingDownLocked(now time.Time, cooldown time.Duration) bool {
	return !s.lastScale.IsZero() && now.Sub(s.lastScale) < cooldown
}

// coolingDown reports whether a scale happened less than cooldown ago.
func (s *state) coolingDown(now time.Time, cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coolingDownLocked(now, cooldown)
}

// acquire claims the right to scale. It never blocks: it returns Busy if
// another tick holds the claim and CoolingDown if the cooldown has not elapsed.
func (s *state) acquire(now time.Time, cooldown time.Duration) (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scaling {
		return Busy, false
	}
	if s.coolingDownLocked(now, cooldown) {
		return CoolingDown, false
	}
	s.scaling = true
	return Scaled, true
}

// release drops the claim. A non-zero at records a successful scale;
// lastScale never moves backwards.
func (s *state) release(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scaling = false
	if !at.IsZero() && at.After(s.lastScale) {
		s.lastScale = at
	}
}

// last returns the time of the last successful scale, if any.
func (s *state) last() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScale, !s.lastScale.IsZero()
}
