package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HammerMeetNail/widgetshare/internal/backend/memory"
	"github.com/HammerMeetNail/widgetshare/internal/testutil"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) Health(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Ready(t *testing.T) {
	h := NewHealthHandler(map[string]HealthChecker{
		"documents": DocumentsChecker{Docs: memory.NewDocuments()},
		"redis":     checkerFunc(func(ctx context.Context) error { return nil }),
		"skipped":   nil,
	})
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr.Body.Bytes(), "status", "ready")
}

func TestHealthHandler_ReadyReportsFailure(t *testing.T) {
	h := NewHealthHandler(map[string]HealthChecker{
		"redis": checkerFunc(func(ctx context.Context) error { return errors.New("down") }),
	})
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	testutil.AssertStatusCode(t, rr, http.StatusServiceUnavailable)

	services := testutil.ParseJSONResponse(t, rr.Body.Bytes())["services"].(map[string]any)
	if services["redis"] != "unhealthy" {
		t.Fatalf("expected redis unhealthy, got %v", services)
	}
}

func TestHealthHandler_HealthAndLive(t *testing.T) {
	h := NewHealthHandler(nil)
	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	testutil.AssertJSONContains(t, rr.Body.Bytes(), "status", "ok")

	rr = httptest.NewRecorder()
	h.Live(rr, httptest.NewRequest(http.MethodGet, "/live", nil))
	testutil.AssertJSONContains(t, rr.Body.Bytes(), "status", "alive")
}
