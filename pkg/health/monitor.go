package health

import (
	"sync"
	"time"

	"genset-bridge/pkg/recovery"
)

// Monitor tracks the exported online/offline status of the bridge link.
// This is deliberately slower-moving than the per-tick connected flag in the
// state store: a link has to fail past the grace period to be reported
// offline, and one success brings it back.
type Monitor struct {
	mu              sync.RWMutex
	isOnline        bool
	lastSuccessTime time.Time
	lastErrorTime   time.Time
	successCount    int
	errorCount      int
	tracker         *recovery.Tracker
}

// NewMonitor creates a health monitor with the given grace period
func NewMonitor(gracePeriod time.Duration) *Monitor {
	return &Monitor{
		isOnline: true,
		tracker:  recovery.NewTracker(gracePeriod),
	}
}

// IsOnline returns whether the link is currently marked online
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isOnline
}

// RecordSuccess records a successful poll or command cycle
func (m *Monitor) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracker.RecordSuccess()
	m.lastSuccessTime = time.Now()
	m.successCount++
}

// RecordError records a failed cycle and reports whether the link should
// now be marked offline
func (m *Monitor) RecordError() (shouldMarkOffline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErrorTime = time.Now()
	m.errorCount++
	m.tracker.RecordError()
	return m.tracker.ShouldMarkOffline()
}

// MarkOffline explicitly marks the link offline
func (m *Monitor) MarkOffline() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isOnline = false
	m.tracker.MarkOffline()
}

// MarkOnline explicitly marks the link online
func (m *Monitor) MarkOnline() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isOnline = true
	m.tracker.RecordSuccess()
}

// ConsecutiveErrors returns the current count of consecutive errors
func (m *Monitor) ConsecutiveErrors() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tracker.ConsecutiveErrors()
}

// InGracePeriod returns true while errors are still being tolerated
func (m *Monitor) InGracePeriod() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tracker.InGracePeriod()
}

// TimeSinceFirstError returns the duration since the first error in the
// current sequence
func (m *Monitor) TimeSinceFirstError() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tracker.TimeSinceFirstError()
}

// LastSuccessTime returns the time of the last successful cycle
func (m *Monitor) LastSuccessTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSuccessTime
}

// ErrorCount returns the total number of failed cycles
func (m *Monitor) ErrorCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errorCount
}

// SuccessCount returns the total number of successful cycles
func (m *Monitor) SuccessCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.successCount
}
