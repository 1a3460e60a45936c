package apiapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/portfolio/internal/config"
	"github.com/ivankudzin/portfolio/internal/infra/metrics"
	pgrepo "github.com/ivankudzin/portfolio/internal/repo/postgres"
	redrepo "github.com/ivankudzin/portfolio/internal/repo/redis"
	authsvc "github.com/ivankudzin/portfolio/internal/services/auth"
	contentsvc "github.com/ivankudzin/portfolio/internal/services/content"
	ratesvc "github.com/ivankudzin/portfolio/internal/services/rate"
	"github.com/ivankudzin/portfolio/internal/web"
)

func TestRequireRoleAllowsCaseInsensitiveMatch(t *testing.T) {
	mw := RequireRole("OWNER", "EDITOR")

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/content", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: "a1",
		SID:    "sid-1",
		Role:   "editor",
	}))
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestRequireRoleRejectsForbiddenRole(t *testing.T) {
	mw := RequireRole("OWNER")

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/content", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: "a2",
		SID:    "sid-2",
		Role:   "EDITOR",
	}))
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called for forbidden role")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
}

func TestAuthMiddlewareRejectsMissingAndInvalidToken(t *testing.T) {
	jwtManager := authsvc.NewJWTManager("test-secret-test-secret-test-secret", "portfolio", time.Minute)
	service := authsvc.NewService(nil, redrepo.NewSessionRepo(nil), jwtManager, authsvc.Options{}, nil)
	mw := AuthMiddleware(service, zap.NewNop())

	for name, header := range map[string]string{
		"missing": "",
		"scheme":  "Basic abc",
		"garbage": "Bearer not-a-jwt",
	} {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/auth/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()

		mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			t.Fatalf("%s: handler must not be called", name)
		})).ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: unexpected status: got %d want %d", name, rr.Code, http.StatusUnauthorized)
		}
	}
}

func TestExtractBearerToken(t *testing.T) {
	if token, ok := extractBearerToken("bearer abc.def"); !ok || token != "abc.def" {
		t.Fatalf("unexpected token: %q %v", token, ok)
	}
	if _, ok := extractBearerToken("Bearer   "); ok {
		t.Fatalf("blank token must be rejected")
	}
}

func TestIPRateLimitReturns429(t *testing.T) {
	mw := IPRateLimit(ratesvc.NewIPLimiter(60, 1))
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/v1/embed", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("request %d: unexpected status: got %d want %d", i, rr.Code, want)
		}
	}
}

// Without Postgres the repos error on every call, which is how the app runs
// when the database is down.
func newDegradedRouter(t *testing.T) (http.Handler, *metrics.Metrics) {
	t.Helper()

	renderer, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	appMetrics := metrics.New()
	jwtManager := authsvc.NewJWTManager("test-secret-test-secret-test-secret", "portfolio", time.Minute)

	r := chi.NewRouter()
	ApplyMiddlewares(r, zap.NewNop(), appMetrics, time.Second)
	RegisterRoutes(r, Dependencies{
		AuthService:    authsvc.NewService(pgrepo.NewAdminUserRepo(nil), redrepo.NewSessionRepo(nil), jwtManager, authsvc.Options{}, nil),
		ContentService: contentsvc.NewService(pgrepo.NewContentRepo(nil), nil),
		Renderer:       renderer,
		Profile:        ProfileFromConfig(config.Default().Site),
		Metrics:        appMetrics,
		PublicLimiter:  ratesvc.NewIPLimiter(600, 100),
		Logger:         zap.NewNop(),
	})
	return r, appMetrics
}

func TestRoutesServeDegradedPage(t *testing.T) {
	router, _ := newDegradedRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}
	doc, err := goquery.NewDocumentFromReader(rr.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	if doc.Find(".notice").Length() != 1 {
		t.Fatalf("expected degraded notice")
	}
	if got := strings.TrimSpace(doc.Find("h1").First().Text()); got != "Portfolio" {
		t.Fatalf("unexpected owner name: %q", got)
	}
}

func TestRoutesProtectAdminAndExposeMetrics(t *testing.T) {
	router, _ := newDegradedRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/content?type=hero", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected admin status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/embed?url=https://youtu.be/dQw4w9WgXcQ", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected embed status: got %d want %d", rr.Code, http.StatusOK)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected metrics status: got %d want %d", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `portfolio_http_requests_total{method="GET",route="/v1/embed",status="200"} 1`) {
		t.Fatalf("expected embed request in metrics output")
	}
	if !strings.Contains(body, `portfolio_embed_classifications_total{platform="youtube"} 1`) {
		t.Fatalf("expected youtube classification in metrics output")
	}
}

func TestRoutesWithoutPublicLimiter(t *testing.T) {
	renderer, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, Dependencies{
		ContentService: contentsvc.NewService(pgrepo.NewContentRepo(nil), nil),
		Renderer:       renderer,
		Profile:        ProfileFromConfig(config.Default().Site),
		Logger:         zap.NewNop(),
	})

	for _, target := range []string{"/", "/v1/embed?url=https%3A%2F%2Fyoutu.be%2FdQw4w9WgXcQ"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: unexpected status: got %d want %d", target, rr.Code, http.StatusOK)
		}
	}
}
