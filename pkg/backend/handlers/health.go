package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vertex-home/assist-bridge/pkg/types"
)

// healthCheckTimeout bounds each upstream probe in the status endpoint.
const healthCheckTimeout = 15 * time.Second

// HealthHandler serves the health, status and version endpoints.
type HealthHandler struct {
	providers map[string]types.Provider
	version   string
	started   time.Time
}

// NewHealthHandler creates a health handler over the named providers.
func NewHealthHandler(providers map[string]types.Provider, version string) *HealthHandler {
	return &HealthHandler{
		providers: providers,
		version:   version,
		started:   time.Now(),
	}
}

// Health is a cheap liveness probe. It never calls upstream.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	SendSuccess(w, r, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// Status probes each provider with its health-check call and reports
// per-provider results.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	statuses := make(map[string]types.HealthStatus, len(h.providers))
	healthy := true

	for name, provider := range h.providers {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		start := time.Now()
		err := provider.HealthCheck(ctx)
		cancel()

		status := types.HealthStatus{
			Healthy:      err == nil,
			LastChecked:  time.Now(),
			ResponseTime: time.Since(start).Seconds(),
		}
		if err != nil {
			status.Message = err.Error()
			healthy = false
		}
		statuses[name] = status
	}

	overall := "ok"
	if !healthy {
		overall = "degraded"
	}

	SendSuccess(w, r, map[string]interface{}{
		"status":    overall,
		"version":   h.version,
		"uptime":    time.Since(h.started).String(),
		"providers": statuses,
	})
}

// Version reports the bridge version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	SendSuccess(w, r, map[string]string{"version": h.version})
}
