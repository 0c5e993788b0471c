package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/drfirst/go-healthassist/pkg/circuitbreaker"
)

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter lists circuit breaker states.
type BreakerReporter interface {
	GetHealthStatus() []circuitbreaker.HealthStatus
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	service  string
	version  string
	db       Pinger
	breakers BreakerReporter
	origins  map[string]string
}

// NewHealthHandler creates a new handler. db and breakers may be nil.
func NewHealthHandler(service, version string, db Pinger, breakers BreakerReporter, origins map[string]string) *HealthHandler {
	return &HealthHandler{service: service, version: version, db: db, breakers: breakers, origins: origins}
}

// Routes returns the handler routes
func (h *HealthHandler) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": h.service,
		"version": h.version,
	})
}

// ReadyResponse reports dependency state. Open breakers only degrade answers,
// so they do not make the service unready.
type ReadyResponse struct {
	Status   string                        `json:"status"`
	Database string                        `json:"database,omitempty"`
	Breakers []circuitbreaker.HealthStatus `json:"breakers,omitempty"`
	Tables   map[string]string             `json:"tables,omitempty"`
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Tables: h.origins}
	status := http.StatusOK

	if h.db != nil {
		resp.Database = "ok"
		if err := h.db.Ping(r.Context()); err != nil {
			resp.Database = err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
		}
	}
	if h.breakers != nil {
		resp.Breakers = h.breakers.GetHealthStatus()
	}
	writeJSON(w, status, resp)
}
