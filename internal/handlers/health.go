package handlers

import (
	"net/http"
	"runtime"

	"picture-frame/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status           string `json:"status"`
	Ready            bool   `json:"ready"`
	Version          string `json:"version"`
	Uptime           string `json:"uptime"`
	Scanning         bool   `json:"scanning"`
	LastScan         string `json:"lastScan,omitempty"`
	InitialScanError string `json:"initialScanError,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Catalog summary
	TotalImages   int `json:"totalImages,omitempty"`
	TotalAlbums   int `json:"totalAlbums,omitempty"`
	UnshownImages int `json:"unshownImages,omitempty"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	status := h.scanner.GetStatus()
	stats := h.store.GetStats()

	response := HealthResponse{
		Ready:        status.Ready,
		Version:      startup.Version,
		Uptime:       status.Uptime,
		Scanning:     status.Scanning,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if status.Ready {
		response.Status = statusHealthy
	} else {
		response.Status = statusStarting
	}

	if !status.LastScan.IsZero() {
		response.LastScan = status.LastScan.Format("2006-01-02T15:04:05Z07:00")
	}

	if status.InitialScanError != "" {
		response.InitialScanError = status.InitialScanError
		response.Status = statusDegraded
	}

	if stats.TotalImages > 0 || stats.TotalAlbums > 0 {
		response.TotalImages = stats.TotalImages
		response.TotalAlbums = stats.TotalAlbums
		response.UnshownImages = stats.UnshownImages
	}

	w.Header().Set("Content-Type", "application/json")

	// Return 503 only if not ready at all
	if !status.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the initial scan has completed
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.scanner.IsReady() {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{
			"status": "ready",
		})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
	}
}
