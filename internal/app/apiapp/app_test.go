package apiapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/ivankudzin/portfolio/internal/config"
	"github.com/ivankudzin/portfolio/internal/transport/http/dto"
)

func TestNewStartsDegradedWithoutDependencies(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Addr = ":0"
	cfg.Postgres.DSN = ""
	cfg.Redis.Addr = ""
	cfg.S3.Endpoint = ""

	app, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	if app.cleanupJob != nil {
		t.Fatalf("cleanup job must not run without postgres")
	}

	ts := httptest.NewServer(app.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: got %d want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
	var payload dto.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "degraded" || payload.Checks["postgres"] != "disabled" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	page, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	defer page.Body.Close()
	if page.StatusCode != http.StatusOK {
		t.Fatalf("page must render in degraded mode, got %d", page.StatusCode)
	}
}

func TestProfileFromConfig(t *testing.T) {
	profile := ProfileFromConfig(config.SiteConfig{
		OwnerName: "Jane Doe",
		Socials:   []config.LinkConfig{{Label: "YouTube", URL: "https://youtube.com/@jane"}},
		Journey: []config.JourneyBox{{
			Title: "Tools",
			Items: []config.JourneyItem{{Label: "Resolve"}},
		}},
	})

	if profile.OwnerName != "Jane Doe" || len(profile.Socials) != 1 || profile.Socials[0].URL != "https://youtube.com/@jane" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if len(profile.Journey) != 1 || profile.Journey[0].Items[0].Label != "Resolve" {
		t.Fatalf("unexpected journey: %+v", profile.Journey)
	}
}
