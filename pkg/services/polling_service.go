package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "genset-bridge/pkg/errors"
	"genset-bridge/pkg/gateway"
	"genset-bridge/pkg/health"
	"genset-bridge/pkg/logger"
	"genset-bridge/pkg/metrics"
	"genset-bridge/pkg/protocol"
	"genset-bridge/pkg/state"
)

// PollingService drives the periodic status-query cycle: acquire the shared
// transport, send STATUS?, decode the response and publish the snapshot.
// Ticks run synchronously inside the loop, so a tick still in flight
// suppresses the next scheduled tick; they are never run concurrently.
type PollingService struct {
	manager   *gateway.ConnectionManager
	store     *state.Store
	monitor   *health.Monitor
	publisher StatePublisher
	journal   EventRecorder
	collector metrics.Collector

	interval    time.Duration
	readTimeout time.Duration

	// Performance tracking
	successfulPolls int
	errorPolls      int
	lastSummaryTime time.Time
	lastAlarms      string
}

// NewPollingService creates a polling service. publisher and journal may be
// nil; collector must not be (use metrics.NewNullCollector()).
func NewPollingService(
	manager *gateway.ConnectionManager,
	store *state.Store,
	monitor *health.Monitor,
	publisher StatePublisher,
	journal EventRecorder,
	collector metrics.Collector,
	interval time.Duration,
	readTimeout time.Duration,
) *PollingService {
	return &PollingService{
		manager:         manager,
		store:           store,
		monitor:         monitor,
		publisher:       publisher,
		journal:         journal,
		collector:       collector,
		interval:        interval,
		readTimeout:     readTimeout,
		lastSummaryTime: time.Now(),
	}
}

// Run executes the polling loop until ctx is cancelled. The first tick
// fires immediately so the panel is not blank for a full interval.
func (s *PollingService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.LogInfo("🔄 Polling service started with interval: %v", s.interval)

	s.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.LogDebug("🔄 Polling service stopped")
			return
		case <-ticker.C:
			s.PollOnce(ctx)
		}
	}
}

// PollOnce performs one status poll tick
func (s *PollingService) PollOnce(ctx context.Context) {
	startTime := time.Now()

	resp, err := s.manager.Exchange(ctx, protocol.EncodeStatusQuery(), s.readTimeout, s.readTimeout)
	if err != nil {
		s.handlePollError(ctx, err)
		return
	}

	st := protocol.DecodeStatus(resp)
	// A parse error is still a meaningful observation: we heard from the
	// device but could not read it. The timestamp advances either way.
	st.LastUpdate = time.Now()
	s.store.Publish(st)
	s.collector.RecordPoll(time.Since(startTime), nil)
	s.collector.SetConnected(true)

	if st.Status == protocol.StatusParseError {
		logger.LogWarn("⚠️ Unparseable status payload (%d bytes)", len(resp))
		if s.journal != nil {
			s.journal.Record("parse", fmt.Sprintf("unparseable status payload (%d bytes)", len(resp)))
		}
	} else {
		logger.LogTrace("🔍 Poll: status=%s kw=%.1f hz=%.1f fuel=%.0f%%",
			st.Status, st.PowerKW, st.FrequencyHz, st.FuelLevelPct)
		s.journalAlarmChanges(st)
	}

	// A transport-level round trip completed, so the link is healthy
	// regardless of parseability
	s.handlePollSuccess(ctx, st)
}

// handlePollError handles a tick where the transport was unavailable or the
// round trip failed. The last-known telemetry values are preserved; only
// the connected flag is lowered.
func (s *PollingService) handlePollError(ctx context.Context, err error) {
	if apperrors.IsBusy(err) {
		// A command owns the transport right now; that also proves the link
		// is alive. Skip the tick without touching the published state.
		logger.LogDebug("🔧 Poll tick skipped, transport busy")
		return
	}

	s.errorPolls++
	s.store.SetDisconnected()
	s.collector.RecordPoll(0, err)
	s.collector.SetConnected(false)

	logger.LogDebug("❌ Poll failed: %v", err)
	s.recordError(ctx, err)
	s.maybeLogSummary()
}

// handlePollSuccess publishes the decoded state to the export surfaces
func (s *PollingService) handlePollSuccess(ctx context.Context, st protocol.GeneratorState) {
	s.successfulPolls++
	s.recordSuccess(ctx)
	s.maybeLogSummary()

	if s.publisher != nil {
		if pubErr := s.publisher.PublishState(ctx, st); pubErr != nil {
			logger.LogError("⚠️ Error publishing state: %v", pubErr)
		}
	}
}

// recordError tracks link health with the grace period before the exported
// availability flips offline
func (s *PollingService) recordError(ctx context.Context, err error) {
	shouldMarkOffline := s.monitor.RecordError()

	if s.monitor.ConsecutiveErrors() == 1 {
		logger.LogWarn("⚠️ First poll error detected, starting grace period")
	}

	if s.monitor.InGracePeriod() {
		logger.LogDebug("🕐 Error %d in grace period (%.1fs elapsed) - keeping status online",
			s.monitor.ConsecutiveErrors(),
			s.monitor.TimeSinceFirstError().Seconds())
		return
	}

	if shouldMarkOffline && s.monitor.IsOnline() {
		s.monitor.MarkOffline()
		logger.LogError("🔴 Grace period expired - bridge marked OFFLINE after %d errors over %.1f seconds",
			s.monitor.ConsecutiveErrors(),
			s.monitor.TimeSinceFirstError().Seconds())

		if s.journal != nil {
			s.journal.Record("link", "bridge marked offline")
		}
		if s.publisher != nil {
			if pubErr := s.publisher.PublishAvailability(ctx, false); pubErr != nil {
				logger.LogError("⚠️ Error publishing offline status: %v", pubErr)
			}
			if diagErr := s.publisher.PublishDiagnostic(ctx, apperrors.DiagnosticCode(err), err.Error()); diagErr != nil {
				logger.LogError("⚠️ Error publishing diagnostic: %v", diagErr)
			}
		}
	}
}

// recordSuccess resets error tracking and restores the exported
// availability when functionality resumes
func (s *PollingService) recordSuccess(ctx context.Context) {
	wasOffline := !s.monitor.IsOnline()
	s.monitor.RecordSuccess()

	if wasOffline {
		s.monitor.MarkOnline()
		logger.LogInfo("🟢 Bridge marked ONLINE - functionality restored")

		if s.journal != nil {
			s.journal.Record("link", "bridge back online")
		}
		if s.publisher != nil {
			if pubErr := s.publisher.PublishAvailability(ctx, true); pubErr != nil {
				logger.LogError("⚠️ Error publishing online status: %v", pubErr)
			}
			if diagErr := s.publisher.PublishDiagnostic(ctx, 0, "functionality restored - bridge back online"); diagErr != nil {
				logger.LogError("⚠️ Error publishing recovery diagnostic: %v", diagErr)
			}
		}
	}
}

// journalAlarmChanges records the alarm set whenever it changes
func (s *PollingService) journalAlarmChanges(st protocol.GeneratorState) {
	if s.journal == nil {
		return
	}
	alarms := append([]string(nil), st.Alarms...)
	sort.Strings(alarms)
	joined := strings.Join(alarms, ",")
	if joined == s.lastAlarms {
		return
	}
	s.lastAlarms = joined
	if joined == "" {
		s.journal.Record("alarm", "alarm set cleared")
	} else {
		s.journal.Record("alarm", "active alarms: "+joined)
	}
}

// maybeLogSummary prints a compact summary every 30 seconds instead of
// per-tick noise
func (s *PollingService) maybeLogSummary() {
	if time.Since(s.lastSummaryTime) < 30*time.Second {
		return
	}
	logger.LogInfo("📊 Summary - Success: %d, Errors: %d, Last 30s", s.successfulPolls, s.errorPolls)
	s.lastSummaryTime = time.Now()
	s.successfulPolls = 0
	s.errorPolls = 0
}

// Stats returns current performance counters
func (s *PollingService) Stats() (successfulPolls, errorPolls int) {
	return s.successfulPolls, s.errorPolls
}
