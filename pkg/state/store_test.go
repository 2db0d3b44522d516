package state

import (
	"testing"
	"time"

	"genset-bridge/pkg/gateway"
	"genset-bridge/pkg/protocol"
)

// TestSnapshotIsolation tests that mutating a snapshot or the published
// state after the fact does not leak into other readers
func TestSnapshotIsolation(t *testing.T) {
	store := NewStore()

	published := protocol.GeneratorState{
		Status:    protocol.StatusRunning,
		Alarms:    []string{"LOW_OIL"},
		Connected: true,
	}
	store.Publish(published)

	// Mutating the caller's copy after Publish must not affect the store
	published.Alarms[0] = "MUTATED"
	snap := store.Snapshot()
	if snap.Alarms[0] != "LOW_OIL" {
		t.Errorf("Publish did not copy alarms: got %q", snap.Alarms[0])
	}

	// Mutating a snapshot must not affect later readers
	snap.Alarms[0] = "MUTATED"
	again := store.Snapshot()
	if again.Alarms[0] != "LOW_OIL" {
		t.Errorf("Snapshot leaked shared state: got %q", again.Alarms[0])
	}
}

// TestLastUpdateMonotonic tests that LastUpdate never moves backward
func TestLastUpdateMonotonic(t *testing.T) {
	store := NewStore()
	later := time.Now()
	earlier := later.Add(-time.Hour)

	store.Publish(protocol.GeneratorState{Status: protocol.StatusRunning, LastUpdate: later})
	store.Publish(protocol.GeneratorState{Status: protocol.StatusStopped, LastUpdate: earlier})

	snap := store.Snapshot()
	if snap.Status != protocol.StatusStopped {
		t.Errorf("Expected telemetry to update, got %s", snap.Status)
	}
	if !snap.LastUpdate.Equal(later) {
		t.Errorf("Expected LastUpdate clamped to %v, got %v", later, snap.LastUpdate)
	}
}

// TestSetDisconnectedPreservesTelemetry tests that a failed poll keeps the
// last good readings with only the connected flag lowered
func TestSetDisconnectedPreservesTelemetry(t *testing.T) {
	store := NewStore()
	store.Publish(protocol.GeneratorState{
		Status:       protocol.StatusRunning,
		PowerKW:      8.2,
		FuelLevelPct: 76,
		Connected:    true,
		LastUpdate:   time.Now(),
	})

	store.SetDisconnected()

	snap := store.Snapshot()
	if snap.Connected {
		t.Error("Expected Connected=false after SetDisconnected")
	}
	if snap.Status != protocol.StatusRunning || snap.PowerKW != 8.2 || snap.FuelLevelPct != 76 {
		t.Errorf("Expected stale telemetry preserved, got %+v", snap)
	}
	if snap.LastUpdate.IsZero() {
		t.Error("Expected LastUpdate preserved")
	}
}

// TestConnStateTracking tests the connection-state mirror
func TestConnStateTracking(t *testing.T) {
	store := NewStore()

	if store.ConnState() != gateway.StateDisconnected {
		t.Errorf("Expected initial StateDisconnected, got %s", store.ConnState())
	}
	if store.IsConnected() {
		t.Error("Expected IsConnected false initially")
	}

	store.SetConnState(gateway.StateConnected)
	if !store.IsConnected() {
		t.Error("Expected IsConnected true after StateConnected")
	}

	store.SetConnState(gateway.StateBackoff)
	if store.IsConnected() {
		t.Error("Expected IsConnected false during backoff")
	}
}

// TestInitialSnapshot tests the empty-store snapshot
func TestInitialSnapshot(t *testing.T) {
	snap := NewStore().Snapshot()
	if snap.Status != protocol.StatusUnknown {
		t.Errorf("Expected StatusUnknown, got %s", snap.Status)
	}
	if snap.Connected {
		t.Error("Expected Connected false before first poll")
	}
	if !snap.LastUpdate.IsZero() {
		t.Error("Expected zero LastUpdate before first poll")
	}
}
