package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is anything the readiness probe can reach.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers handles health check endpoints
type HealthHandlers struct {
	db      Pinger
	cache   Pinger
	started time.Time
	version string
}

// NewHealthHandlers creates a new health handlers instance
func NewHealthHandlers(db, cache Pinger, version string) *HealthHandlers {
	return &HealthHandlers{
		db:      db,
		cache:   cache,
		started: time.Now(),
		version: version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
}

func (h *HealthHandlers) status(state string) *HealthStatus {
	return &HealthStatus{
		Status:    state,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Version:   h.version,
	}
}

// HealthCheck reports that the process is serving
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, h.status("healthy"))
}

// ReadinessCheck pings the database and the cache
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	health := h.status("ready")
	health.Services = map[string]string{}

	checks := map[string]Pinger{"database": h.db, "redis": h.cache}
	for name, p := range checks {
		if err := p.Ping(ctx); err != nil {
			health.Services[name] = "unhealthy"
			health.Status = "not_ready"
			continue
		}
		health.Services[name] = "healthy"
	}

	code := http.StatusOK
	if health.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, health)
}
