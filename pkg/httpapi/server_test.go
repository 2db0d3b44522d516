package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"genset-bridge/pkg/protocol"
	"genset-bridge/pkg/state"
)

// fakeHealth implements HealthChecker with fixed values
type fakeHealth struct {
	online  bool
	last    time.Time
	errs    int
	success int
}

func (f *fakeHealth) IsOnline() bool             { return f.online }
func (f *fakeHealth) LastSuccessTime() time.Time { return f.last }
func (f *fakeHealth) ErrorCount() int            { return f.errs }
func (f *fakeHealth) SuccessCount() int          { return f.success }

// fakeSink returns a canned command result
type fakeSink struct {
	result protocol.CommandResult
	got    *protocol.CommandRequest
}

func (f *fakeSink) Dispatch(ctx context.Context, req protocol.CommandRequest) protocol.CommandResult {
	f.got = &req
	return f.result
}

func newTestServer(sink CommandSink, checker HealthChecker) (*Server, *state.Store) {
	store := state.NewStore()
	if checker == nil {
		checker = &fakeHealth{online: true, last: time.Now(), success: 10}
	}
	srv := NewServer(":0", store, sink, NewHealthHandler(checker, "test"), nil)
	return srv, store
}

// TestHealthzHealthy tests the 200 path
func TestHealthzHealthy(t *testing.T) {
	checker := &fakeHealth{online: true, last: time.Now(), success: 100, errs: 2}
	handler := NewHealthHandler(checker, "1.0")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if status.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", status.Status)
	}
	if !status.DeviceOnline {
		t.Error("Expected device_online true")
	}
	if status.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", status.Version)
	}
}

// TestHealthzUnhealthy tests the 503 path when the link is offline
func TestHealthzUnhealthy(t *testing.T) {
	checker := &fakeHealth{online: false}
	handler := NewHealthHandler(checker, "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

// TestHealthzDegraded tests the degraded classification on a high error rate
func TestHealthzDegraded(t *testing.T) {
	checker := &fakeHealth{online: true, last: time.Now(), success: 70, errs: 30}
	handler := NewHealthHandler(checker, "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for degraded, got %d", rec.Code)
	}
	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if status.Status != "degraded" {
		t.Errorf("Expected degraded, got %s", status.Status)
	}
}

// TestSnapshotEndpoint tests that the latest state is served as JSON
func TestSnapshotEndpoint(t *testing.T) {
	srv, store := newTestServer(&fakeSink{}, nil)
	store.Publish(protocol.GeneratorState{
		Status:       protocol.StatusRunning,
		PowerKW:      8.2,
		FuelLevelPct: 76,
		Connected:    true,
	})

	rec := httptest.NewRecorder()
	srv.handleSnapshot(rec, httptest.NewRequest("GET", "/snapshot", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var snap protocol.GeneratorState
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	if snap.Status != protocol.StatusRunning || snap.PowerKW != 8.2 {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
}

// TestSnapshotMethodNotAllowed tests that POST is rejected
func TestSnapshotMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(&fakeSink{}, nil)

	rec := httptest.NewRecorder()
	srv.handleSnapshot(rec, httptest.NewRequest("POST", "/snapshot", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

// TestCommandAccepted tests the 200 path and request decoding
func TestCommandAccepted(t *testing.T) {
	sink := &fakeSink{result: protocol.CommandResult{OK: true, Response: "OK"}}
	srv, _ := newTestServer(sink, nil)

	body := strings.NewReader(`{"command": "start", "timeout_ms": 1500}`)
	rec := httptest.NewRecorder()
	srv.handleCommand(rec, httptest.NewRequest("POST", "/command", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if sink.got == nil {
		t.Fatal("Expected command to reach the sink")
	}
	if sink.got.Kind != protocol.CommandStart {
		t.Errorf("Expected CommandStart, got %s", sink.got.Kind)
	}
	if sink.got.Timeout != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s timeout, got %v", sink.got.Timeout)
	}
}

// TestCommandBusy tests the 409 mapping
func TestCommandBusy(t *testing.T) {
	sink := &fakeSink{result: protocol.CommandResult{OK: false, Reason: "busy"}}
	srv, _ := newTestServer(sink, nil)

	body := strings.NewReader(`{"command": "stop"}`)
	rec := httptest.NewRecorder()
	srv.handleCommand(rec, httptest.NewRequest("POST", "/command", body))

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", rec.Code)
	}
}

// TestCommandLinkFault tests the 502 mapping
func TestCommandLinkFault(t *testing.T) {
	sink := &fakeSink{result: protocol.CommandResult{OK: false, Reason: "connection failure"}}
	srv, _ := newTestServer(sink, nil)

	body := strings.NewReader(`{"command": "stop"}`)
	rec := httptest.NewRecorder()
	srv.handleCommand(rec, httptest.NewRequest("POST", "/command", body))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", rec.Code)
	}
}

// TestCommandRejectedStays200 tests that a device-level rejection is a
// delivered command, not a transport failure
func TestCommandRejectedStays200(t *testing.T) {
	sink := &fakeSink{result: protocol.CommandResult{OK: false, Response: "ERR 05", Reason: "rejected by device"}}
	srv, _ := newTestServer(sink, nil)

	body := strings.NewReader(`{"command": "start"}`)
	rec := httptest.NewRecorder()
	srv.handleCommand(rec, httptest.NewRequest("POST", "/command", body))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for device rejection, got %d", rec.Code)
	}

	var result protocol.CommandResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.OK || result.Response != "ERR 05" {
		t.Errorf("Unexpected result: %+v", result)
	}
}

// TestCommandBadRequest tests malformed bodies and unknown commands
func TestCommandBadRequest(t *testing.T) {
	srv, _ := newTestServer(&fakeSink{}, nil)

	cases := []string{
		`not json`,
		`{"command": "self_destruct"}`,
		`{}`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		srv.handleCommand(rec, httptest.NewRequest("POST", "/command", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

// TestCommandMethodNotAllowed tests that GET is rejected
func TestCommandMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(&fakeSink{}, nil)

	rec := httptest.NewRecorder()
	srv.handleCommand(rec, httptest.NewRequest("GET", "/command", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}
