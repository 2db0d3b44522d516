package services

import (
	"context"
	"fmt"
	"time"

	apperrors "genset-bridge/pkg/errors"
	"genset-bridge/pkg/gateway"
	"genset-bridge/pkg/logger"
	"genset-bridge/pkg/metrics"
	"genset-bridge/pkg/protocol"
)

// CommandService sends operator commands over the shared transport. It
// competes with the poller for the connection; if the poller (or another
// command) holds it past the request timeout the command fails Busy and is
// never retried automatically.
type CommandService struct {
	manager   *gateway.ConnectionManager
	journal   EventRecorder
	collector metrics.Collector

	defaultTimeout time.Duration
}

// NewCommandService creates a command service. journal may be nil;
// collector must not be.
func NewCommandService(manager *gateway.ConnectionManager, journal EventRecorder, collector metrics.Collector, defaultTimeout time.Duration) *CommandService {
	return &CommandService{
		manager:        manager,
		journal:        journal,
		collector:      collector,
		defaultTimeout: defaultTimeout,
	}
}

// Dispatch sends one command and reports the outcome. Exactly one of the
// failure classes applies: Busy (could not acquire the transport in time),
// connection/timeout (link fault, connection torn down), or rejected (the
// device answered with an error token).
func (s *CommandService) Dispatch(ctx context.Context, req protocol.CommandRequest) protocol.CommandResult {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}

	logger.LogInfo("🎛️ Dispatching command: %s (timeout %v)", req.Kind, timeout)

	resp, err := s.manager.Exchange(ctx, protocol.EncodeCommand(req.Kind), timeout, timeout)
	if err != nil {
		return s.failure(req.Kind, err)
	}

	ok, detail := protocol.DecodeCommandResponse(resp)
	if !ok {
		rejErr := apperrors.NewCommandRejectedError(req.Kind.Token(), detail)
		logger.LogWarn("⛔ Command %s rejected by device: %s", req.Kind, detail)
		s.record(req.Kind, rejErr, fmt.Sprintf("rejected: %s", detail))
		return protocol.CommandResult{OK: false, Response: detail, Reason: "rejected by device"}
	}

	logger.LogInfo("✅ Command %s accepted: %s", req.Kind, detail)
	s.record(req.Kind, nil, "accepted")
	return protocol.CommandResult{OK: true, Response: detail}
}

func (s *CommandService) failure(kind protocol.CommandKind, err error) protocol.CommandResult {
	var reason string
	switch {
	case apperrors.IsBusy(err):
		reason = "busy"
		logger.LogWarn("🔒 Command %s not sent, transport busy: %v", kind, err)
	case apperrors.IsTimeout(err):
		reason = "timeout"
		logger.LogError("❌ Command %s timed out: %v", kind, err)
	default:
		reason = "connection failure"
		logger.LogError("❌ Command %s failed: %v", kind, err)
	}

	s.record(kind, err, reason)
	return protocol.CommandResult{OK: false, Reason: reason}
}

func (s *CommandService) record(kind protocol.CommandKind, err error, detail string) {
	s.collector.RecordCommand(kind.Token(), err)
	if s.journal != nil {
		s.journal.Record("command", fmt.Sprintf("%s: %s", kind.Token(), detail))
	}
}
