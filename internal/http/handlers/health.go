package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

// Pinger is a dependency the readiness check pings, such as Postgres or Redis.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler serves the liveness and readiness endpoints.
type HealthHandler struct {
	checks  map[string]Pinger
	timeout time.Duration
	logger  *logging.Logger
}

// NewHealthHandler creates a health handler. checks may be empty.
func NewHealthHandler(checks map[string]Pinger, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{checks: checks, timeout: 2 * time.Second, logger: logger}
}

// Live returns a simple health check response.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready pings every dependency and reports 503 when any is down.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "dependency", name, "error", err)
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	jsonResponse(w, status, map[string]any{"status": overall, "checks": results})
}
