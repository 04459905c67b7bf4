package handlers

import (
	"net/http"
	"runtime"
	"time"

	"model-library/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Uptime        string `json:"uptime"`
	Refreshing    bool   `json:"refreshing"`
	LastRefreshed string `json:"lastRefreshed,omitempty"`

	TotalModels int `json:"totalModels"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports service liveness plus catalog and refresh state.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(h.startedAt).Round(time.Second).String(),
		Refreshing:   h.reconciler.IsRunning(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if last := h.reconciler.LastRun(); !last.IsZero() {
		response.LastRefreshed = last.Format(time.RFC3339)
	}

	status := http.StatusOK
	if records, err := h.db.ListModels(r.Context()); err != nil {
		response.Status = statusDegraded
		status = http.StatusServiceUnavailable
	} else {
		response.TotalModels = len(records)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, response)
}
