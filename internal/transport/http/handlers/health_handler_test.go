package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ivankudzin/portfolio/internal/transport/http/dto"
)

func TestHealthReportsChecks(t *testing.T) {
	handler := NewHealthHandler()
	handler.AttachCheck("postgres", func(context.Context) error { return nil })
	handler.AttachCheck("redis", func(context.Context) error { return nil })

	rr := httptest.NewRecorder()
	handler.Get(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	handler.AttachCheck("redis", func(context.Context) error { return errors.New("down") })
	handler.AttachCheck("s3", nil)

	rr = httptest.NewRecorder()
	handler.Get(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusServiceUnavailable)
	}
	var resp dto.HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Checks["postgres"] != "ok" || resp.Checks["redis"] != "down" || resp.Checks["s3"] != "disabled" {
		t.Fatalf("unexpected checks: %+v", resp.Checks)
	}
}

func TestHealthDisabledDependencyIsDegraded(t *testing.T) {
	handler := NewHealthHandler()
	handler.AttachCheck("postgres", func(context.Context) error { return nil })
	handler.AttachCheck("redis", nil)

	rr := httptest.NewRecorder()
	handler.Get(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusServiceUnavailable)
	}
	var resp dto.HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "degraded" || resp.Checks["redis"] != "disabled" || resp.Checks["postgres"] != "ok" {
		t.Fatalf("unexpected health: %+v", resp)
	}
}
