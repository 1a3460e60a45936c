package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/ivankudzin/portfolio/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/portfolio/internal/transport/http/errors"
)

const healthCheckTimeout = 2 * time.Second

type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{checks: make(map[string]HealthCheck)}
}

// AttachCheck registers a dependency check. A nil check marks the dependency
// as not configured.
func (h *HealthHandler) AttachCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// Get answers 200 "ok" only when every dependency responds. A dependency that
// is down or was never configured makes the service "degraded" with 503.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := dto.HealthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		check := h.checks[name]
		switch {
		case check == nil:
			resp.Checks[name] = "disabled"
			resp.Status = "degraded"
		case check(ctx) != nil:
			resp.Checks[name] = "down"
			resp.Status = "degraded"
		default:
			resp.Checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httperrors.Write(w, status, resp)
}
