package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
)

// HealthChecker is anything that can report its own reachability.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// DocumentsChecker probes a document store with a read of a missing
// document. Not-found means the store answered.
type DocumentsChecker struct {
	Docs backend.Documents
}

func (c DocumentsChecker) Health(ctx context.Context) error {
	_, err := c.Docs.Get(ctx, "health/probe")
	if err == nil || errors.Is(err, backend.ErrNotFound) {
		return nil
	}
	return err
}

type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler takes named dependencies; nil checkers are skipped.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	live := make(map[string]HealthChecker, len(checks))
	for name, c := range checks {
		if c != nil {
			live[name] = c
		}
	}
	return &HealthHandler{checks: live}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "alive"})
}

// Ready pings every dependency and answers 503 if any is down.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ready", Services: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for name, c := range h.checks {
		if err := c.Health(ctx); err != nil {
			resp.Services[name] = "unhealthy"
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Services[name] = "healthy"
	}
	writeJSON(w, status, resp)
}
