package handlers

import (
	"net/http"
	"runtime"
	"time"
)

// HealthHandler reports process liveness and basic runtime stats
type HealthHandler struct {
	environment string
	version     string
	startedAt   time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(environment, version string) *HealthHandler {
	return &HealthHandler{
		environment: environment,
		version:     version,
		startedAt:   time.Now(),
	}
}

type memoryStats struct {
	AllocMB      uint64 `json:"allocMb"`
	TotalAllocMB uint64 `json:"totalAllocMb"`
	SysMB        uint64 `json:"sysMb"`
	NumGC        uint32 `json:"numGc"`
}

type healthResponse struct {
	Status      string      `json:"status"`
	Timestamp   string      `json:"timestamp"`
	Environment string      `json:"environment"`
	Version     string      `json:"version"`
	Uptime      float64     `json:"uptime"`
	Memory      memoryStats `json:"memory"`
}

// ServeHTTP handles GET /api/health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	respondJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Environment: h.environment,
		Version:     h.version,
		Uptime:      time.Since(h.startedAt).Seconds(),
		Memory: memoryStats{
			AllocMB:      m.Alloc / 1024 / 1024,
			TotalAllocMB: m.TotalAlloc / 1024 / 1024,
			SysMB:        m.Sys / 1024 / 1024,
			NumGC:        m.NumGC,
		},
	})
}
