package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "genset-bridge/pkg/errors"
	"genset-bridge/pkg/metrics"
	"genset-bridge/pkg/protocol"
)

// TestDispatchAccepted tests the happy path
func TestDispatchAccepted(t *testing.T) {
	conn := &scriptConn{responses: [][]byte{[]byte("OK\r\n")}}
	rec := &fakeRecorder{}
	s := NewCommandService(newTestManager(conn, nil), rec, metrics.NewNullCollector(), time.Second)

	result := s.Dispatch(context.Background(), protocol.CommandRequest{Kind: protocol.CommandStart})

	if !result.OK {
		t.Fatalf("Expected accepted command, got %+v", result)
	}
	if result.Response != "OK" {
		t.Errorf("Expected response 'OK', got %q", result.Response)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 1 || rec.events[0] != "command: START: accepted" {
		t.Errorf("Unexpected journal events: %v", rec.events)
	}
}

// TestDispatchRejected tests that an explicit rejection token surfaces the
// device's response verbatim
func TestDispatchRejected(t *testing.T) {
	conn := &scriptConn{responses: [][]byte{[]byte("ERR 05 lockout\r\n")}}
	s := NewCommandService(newTestManager(conn, nil), nil, metrics.NewNullCollector(), time.Second)

	result := s.Dispatch(context.Background(), protocol.CommandRequest{Kind: protocol.CommandStart})

	if result.OK {
		t.Fatal("Expected rejection")
	}
	if result.Reason != "rejected by device" {
		t.Errorf("Expected reason 'rejected by device', got %q", result.Reason)
	}
	if result.Response != "ERR 05 lockout" {
		t.Errorf("Expected verbatim response, got %q", result.Response)
	}
}

// TestDispatchBusy tests that a command colliding with an in-flight
// exchange fails Busy within its timeout instead of waiting
func TestDispatchBusy(t *testing.T) {
	conn := &scriptConn{
		responses: [][]byte{[]byte("OK\r\n")},
		delay:     200 * time.Millisecond,
	}
	manager := newTestManager(conn, nil)
	s := NewCommandService(manager, nil, metrics.NewNullCollector(), time.Second)

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		_, _ = manager.Exchange(context.Background(), []byte("STATUS?\r\n"), time.Second, time.Second)
		close(done)
	}()
	<-started
	time.Sleep(20 * time.Millisecond) // let the poll take the lock

	result := s.Dispatch(context.Background(), protocol.CommandRequest{
		Kind:    protocol.CommandStop,
		Timeout: 30 * time.Millisecond,
	})
	<-done

	if result.OK {
		t.Fatal("Expected busy failure")
	}
	if result.Reason != "busy" {
		t.Errorf("Expected reason 'busy', got %q", result.Reason)
	}
}

// TestDispatchConnectionFailure tests the link-fault classification
func TestDispatchConnectionFailure(t *testing.T) {
	dialErr := apperrors.NewConnectionError("dial", fmt.Errorf("refused"), "192.0.2.1", 8899)
	s := NewCommandService(newTestManager(nil, dialErr), nil, metrics.NewNullCollector(), time.Second)

	result := s.Dispatch(context.Background(), protocol.CommandRequest{Kind: protocol.CommandEmergencyStop})

	if result.OK {
		t.Fatal("Expected failure")
	}
	if result.Reason != "connection failure" {
		t.Errorf("Expected reason 'connection failure', got %q", result.Reason)
	}
}

// TestDispatchDefaultTimeout tests that a zero request timeout falls back
// to the configured default
func TestDispatchDefaultTimeout(t *testing.T) {
	conn := &scriptConn{responses: [][]byte{[]byte("OK\r\n")}}
	s := NewCommandService(newTestManager(conn, nil), nil, metrics.NewNullCollector(), 500*time.Millisecond)

	result := s.Dispatch(context.Background(), protocol.CommandRequest{Kind: protocol.CommandAlarmReset})
	if !result.OK {
		t.Fatalf("Expected accepted command, got %+v", result)
	}
}
