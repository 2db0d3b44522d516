package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Tracker collects poll/command counters and exposes them in Prometheus
// text format
type Tracker struct {
	// Counters
	pollsTotal         int64
	pollErrorsTotal    int64
	commandsTotal      map[string]int64
	commandErrorsTotal map[string]int64

	// Gauges
	connected int64 // 1 = session live, 0 = down

	// Histograms (simplified - store sum and count for average)
	pollDurationSum   float64
	pollDurationCount int64

	mu sync.RWMutex
}

// NewTracker creates a metrics tracker
func NewTracker() *Tracker {
	return &Tracker{
		commandsTotal:      make(map[string]int64),
		commandErrorsTotal: make(map[string]int64),
	}
}

// RecordPoll records the outcome of one poll cycle
func (t *Tracker) RecordPoll(duration time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pollsTotal++
	if err != nil {
		t.pollErrorsTotal++
		return
	}
	t.pollDurationSum += duration.Seconds()
	t.pollDurationCount++
}

// RecordCommand records the outcome of one dispatched command
func (t *Tracker) RecordCommand(command string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commandsTotal[command]++
	if err != nil {
		t.commandErrorsTotal[command]++
	}
}

// SetConnected updates the connectivity gauge
func (t *Tracker) SetConnected(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if connected {
		t.connected = 1
	} else {
		t.connected = 0
	}
}

// ServeHTTP implements http.Handler and renders the Prometheus exposition
func (t *Tracker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP genset_polls_total Total status poll attempts\n")
	fmt.Fprintf(w, "# TYPE genset_polls_total counter\n")
	fmt.Fprintf(w, "genset_polls_total %d\n", t.pollsTotal)

	fmt.Fprintf(w, "# HELP genset_poll_errors_total Failed status poll attempts\n")
	fmt.Fprintf(w, "# TYPE genset_poll_errors_total counter\n")
	fmt.Fprintf(w, "genset_poll_errors_total %d\n", t.pollErrorsTotal)

	fmt.Fprintf(w, "# HELP genset_commands_total Dispatched control commands\n")
	fmt.Fprintf(w, "# TYPE genset_commands_total counter\n")
	for cmd, n := range t.commandsTotal {
		fmt.Fprintf(w, "genset_commands_total{command=%q} %d\n", cmd, n)
	}

	fmt.Fprintf(w, "# HELP genset_command_errors_total Failed control commands\n")
	fmt.Fprintf(w, "# TYPE genset_command_errors_total counter\n")
	for cmd, n := range t.commandErrorsTotal {
		fmt.Fprintf(w, "genset_command_errors_total{command=%q} %d\n", cmd, n)
	}

	fmt.Fprintf(w, "# HELP genset_connected Bridge session liveness (1 = live)\n")
	fmt.Fprintf(w, "# TYPE genset_connected gauge\n")
	fmt.Fprintf(w, "genset_connected %d\n", t.connected)

	fmt.Fprintf(w, "# HELP genset_poll_duration_seconds Successful poll round-trip time\n")
	fmt.Fprintf(w, "# TYPE genset_poll_duration_seconds summary\n")
	fmt.Fprintf(w, "genset_poll_duration_seconds_sum %f\n", t.pollDurationSum)
	fmt.Fprintf(w, "genset_poll_duration_seconds_count %d\n", t.pollDurationCount)
}
