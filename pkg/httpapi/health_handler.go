package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status             string    `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp          time.Time `json:"timestamp"`
	Uptime             string    `json:"uptime"`
	DeviceOnline       bool      `json:"device_online"`
	LastSuccessfulPoll string    `json:"last_successful_poll"`
	ErrorCount         int       `json:"error_count"`
	SuccessCount       int       `json:"success_count"`
	Version            string    `json:"version,omitempty"`
}

// HealthChecker provides health information for the endpoint
type HealthChecker interface {
	IsOnline() bool
	LastSuccessTime() time.Time
	ErrorCount() int
	SuccessCount() int
}

// HealthHandler provides the HTTP health check endpoint
type HealthHandler struct {
	startTime time.Time
	checker   HealthChecker
	version   string
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(checker HealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		checker:   checker,
		version:   version,
	}
}

// ServeHTTP implements http.Handler for the /healthz endpoint
func (hh *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := hh.healthStatus()

	w.Header().Set("Content-Type", "application/json")

	statusCode := http.StatusOK
	if status.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(status); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode health status: %v", err), http.StatusInternalServerError)
	}
}

// healthStatus determines current health status
func (hh *HealthHandler) healthStatus() HealthStatus {
	now := time.Now()

	isOnline := hh.checker.IsOnline()
	lastSuccess := hh.checker.LastSuccessTime()
	errorCount := hh.checker.ErrorCount()
	successCount := hh.checker.SuccessCount()

	var lastPollStr string
	if !lastSuccess.IsZero() {
		timeSince := now.Sub(lastSuccess)
		if timeSince < time.Minute {
			lastPollStr = fmt.Sprintf("%d seconds ago", int(timeSince.Seconds()))
		} else if timeSince < time.Hour {
			lastPollStr = fmt.Sprintf("%d minutes ago", int(timeSince.Minutes()))
		} else {
			lastPollStr = fmt.Sprintf("%d hours ago", int(timeSince.Hours()))
		}
	} else {
		lastPollStr = "never"
	}

	status := "healthy"
	if !isOnline {
		status = "unhealthy"
	} else if errorCount > 0 {
		total := errorCount + successCount
		if total > 0 {
			errorRate := float64(errorCount) / float64(total) * 100.0
			if errorRate > 50.0 {
				status = "unhealthy"
			} else if errorRate > 20.0 {
				status = "degraded"
			}
		}
	}

	return HealthStatus{
		Status:             status,
		Timestamp:          now,
		Uptime:             formatDuration(now.Sub(hh.startTime)),
		DeviceOnline:       isOnline,
		LastSuccessfulPoll: lastPollStr,
		ErrorCount:         errorCount,
		SuccessCount:       successCount,
		Version:            hh.version,
	}
}

// formatDuration formats a duration in human-readable form
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	} else if d < 24*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		return fmt.Sprintf("%d hours %d minutes", hours, minutes)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%d days %d hours", days, hours)
}
