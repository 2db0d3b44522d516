package state

import (
	"sync"

	"genset-bridge/pkg/gateway"
	"genset-bridge/pkg/protocol"
)

// Store is the thread-safe holder of the latest decoded generator state and
// the connection-state summary. The generator state is written only by the
// poller, the connection state only by the connection manager; consumers
// read copy-on-read snapshots and never block on the transport lock.
type Store struct {
	mu   sync.RWMutex
	gen  protocol.GeneratorState
	conn gateway.ConnState
}

// NewStore creates a store holding an empty Unknown state
func NewStore() *Store {
	return &Store{
		gen:  protocol.GeneratorState{Status: protocol.StatusUnknown},
		conn: gateway.StateDisconnected,
	}
}

// Snapshot returns an immutable copy of the latest generator state.
// Writes replace the whole value, so a reader never observes a partial update.
func (s *Store) Snapshot() protocol.GeneratorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen.Clone()
}

// Publish commits a new generator state. LastUpdate is clamped so it never
// moves backward across consecutive polls, relevant if the wall clock is
// adjusted while connected.
func (s *Store) Publish(gs protocol.GeneratorState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gs.LastUpdate.Before(s.gen.LastUpdate) {
		gs.LastUpdate = s.gen.LastUpdate
	}
	s.gen = gs.Clone()
}

// SetDisconnected flips the connected flag off without touching the
// last-known telemetry: stale fields from the previous good read persist
// across a failed poll rather than being zeroed.
func (s *Store) SetDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen.Connected = false
}

// SetConnState records the connection manager's current state
func (s *Store) SetConnState(cs gateway.ConnState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = cs
}

// ConnState returns the last recorded connection state
func (s *Store) ConnState() gateway.ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// IsConnected reports whether the bridge session is currently live
func (s *Store) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn == gateway.StateConnected
}
