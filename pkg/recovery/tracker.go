package recovery

import (
	"time"
)

// Tracker manages consecutive-error accounting with a grace period so that
// one flaky poll does not flap the exported availability. It is not
// goroutine-safe on its own; the health monitor wraps it with a lock.
type Tracker struct {
	consecutiveErrors int
	firstErrorTime    time.Time
	gracePeriod       time.Duration
	markedOffline     bool
}

// NewTracker creates an error tracker with the given grace period
func NewTracker(gracePeriod time.Duration) *Tracker {
	if gracePeriod == 0 {
		gracePeriod = 15 * time.Second
	}
	return &Tracker{gracePeriod: gracePeriod}
}

// RecordError records a failed cycle and reports whether the grace period
// has expired
func (t *Tracker) RecordError() bool {
	t.consecutiveErrors++
	if t.firstErrorTime.IsZero() {
		t.firstErrorTime = time.Now()
	}
	return time.Since(t.firstErrorTime) >= t.gracePeriod
}

// RecordSuccess resets error tracking after a successful cycle
func (t *Tracker) RecordSuccess() {
	t.consecutiveErrors = 0
	t.firstErrorTime = time.Time{}
	t.markedOffline = false
}

// ConsecutiveErrors returns the current count of consecutive errors
func (t *Tracker) ConsecutiveErrors() int {
	return t.consecutiveErrors
}

// ShouldMarkOffline returns true exactly once per error sequence, after the
// grace period has expired
func (t *Tracker) ShouldMarkOffline() bool {
	if t.markedOffline {
		return false
	}
	return !t.firstErrorTime.IsZero() && time.Since(t.firstErrorTime) >= t.gracePeriod
}

// MarkOffline latches the offline flag so the transition is not re-published
func (t *Tracker) MarkOffline() {
	t.markedOffline = true
}

// InGracePeriod returns true while errors are still being tolerated
func (t *Tracker) InGracePeriod() bool {
	if t.firstErrorTime.IsZero() {
		return false
	}
	return time.Since(t.firstErrorTime) < t.gracePeriod
}

// TimeSinceFirstError returns the duration since the first error in the
// current sequence, zero when healthy
func (t *Tracker) TimeSinceFirstError() time.Duration {
	if t.firstErrorTime.IsZero() {
		return 0
	}
	return time.Since(t.firstErrorTime)
}
