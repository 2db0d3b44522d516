package services

import (
	"context"

	"genset-bridge/pkg/protocol"
)

// StatePublisher exports state beyond the process boundary (MQTT).
// Nil-able: the services check before publishing.
type StatePublisher interface {
	PublishState(ctx context.Context, st protocol.GeneratorState) error
	PublishAvailability(ctx context.Context, online bool) error
	PublishDiagnostic(ctx context.Context, code int, message string) error
}

// EventRecorder journals operational events (connectivity transitions,
// commands, alarms). Must never block the caller.
type EventRecorder interface {
	Record(category, message string)
}
