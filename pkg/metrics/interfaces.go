package metrics

import "time"

// Collector receives operation outcomes from the poller and dispatcher.
// Implementations must be safe for concurrent use.
type Collector interface {
	RecordPoll(duration time.Duration, err error)
	RecordCommand(command string, err error)
	SetConnected(connected bool)
}

// NullCollector discards all metrics. Used when the metrics surface is
// disabled so callers never need a nil check.
type NullCollector struct{}

// NewNullCollector creates a no-op collector
func NewNullCollector() *NullCollector {
	return &NullCollector{}
}

func (n *NullCollector) RecordPoll(duration time.Duration, err error) {}

func (n *NullCollector) RecordCommand(command string, err error) {}

func (n *NullCollector) SetConnected(connected bool) {}
