package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"genset-bridge/pkg/logger"
	"genset-bridge/pkg/protocol"
	"genset-bridge/pkg/state"
)

// CommandSink dispatches generator commands on behalf of HTTP clients
type CommandSink interface {
	Dispatch(ctx context.Context, req protocol.CommandRequest) protocol.CommandResult
}

// Server exposes the local panel surface: a health check, the latest
// snapshot, the command endpoint and the metrics page.
type Server struct {
	listen   string
	store    *state.Store
	commands CommandSink
	health   *HealthHandler
	metrics  http.Handler
	srv      *http.Server
}

// commandBody is the JSON body accepted by POST /command
type commandBody struct {
	Command   string `json:"command"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`
}

// NewServer creates the panel server. metrics may be nil to disable the
// /metrics page.
func NewServer(listen string, store *state.Store, commands CommandSink, health *HealthHandler, metrics http.Handler) *Server {
	return &Server{
		listen:   listen,
		store:    store,
		commands: commands,
		health:   health,
		metrics:  metrics,
	}
}

// Start runs the HTTP server in the background. ListenAndServe errors other
// than a clean shutdown are reported on the returned channel.
func (s *Server) Start() <-chan error {
	mux := http.NewServeMux()
	mux.Handle("/healthz", s.health)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/command", s.handleCommand)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	mux.HandleFunc("/", s.handleIndex)

	s.srv = &http.Server{
		Addr:              s.listen,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.LogInfo("🌐 HTTP panel listening on %s", s.listen)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown stops the HTTP server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// handleSnapshot serves the latest generator state as JSON
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.store.Snapshot()); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode snapshot: %v", err), http.StatusInternalServerError)
	}
}

// handleCommand accepts {"command": "...", "timeout_ms": ...} and reports
// the dispatch outcome. Busy maps to 409, link faults to 502.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body commandBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	kind, err := protocol.ParseCommandKind(body.Command)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := protocol.CommandRequest{
		Kind:    kind,
		Timeout: time.Duration(body.TimeoutMs) * time.Millisecond,
	}
	result := s.commands.Dispatch(r.Context(), req)

	statusCode := http.StatusOK
	if !result.OK {
		switch result.Reason {
		case "busy":
			statusCode = http.StatusConflict
		case "rejected by device":
			statusCode = http.StatusOK // device answered, delivery succeeded
		default:
			statusCode = http.StatusBadGateway
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.LogWarn("⚠️ Error encoding command result: %v", err)
	}
}

// handleIndex serves a minimal landing page listing the endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<html>
<head><title>Genset Bridge</title></head>
<body>
<h1>Genset Bridge</h1>
<ul>
<li><a href="/healthz">Health Check</a></li>
<li><a href="/snapshot">Generator Snapshot</a></li>
<li><a href="/metrics">Metrics</a> (if enabled)</li>
</ul>
</body>
</html>`)
}
