package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/v1/content", 200, 15*time.Millisecond)
	m.ObserveRequest("GET", "/v1/content", 200, 5*time.Millisecond)
	m.ObserveRequest("GET", "", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/v1/content", "200")); got != 2 {
		t.Fatalf("unexpected request count: %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Fatalf("unexpected unmatched count: %v", got)
	}
}

func TestHandlerExposesClassifications(t *testing.T) {
	m := New()
	m.CountClassification("youtube")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `portfolio_embed_classifications_total{platform="youtube"} 1`) {
		t.Fatalf("classification counter missing from scrape output")
	}
}
