package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/portfolio/internal/domain/enums"
	"github.com/ivankudzin/portfolio/internal/infra/metrics"
	authsvc "github.com/ivankudzin/portfolio/internal/services/auth"
	contentsvc "github.com/ivankudzin/portfolio/internal/services/content"
	mediasvc "github.com/ivankudzin/portfolio/internal/services/media"
	ratesvc "github.com/ivankudzin/portfolio/internal/services/rate"
	"github.com/ivankudzin/portfolio/internal/transport/http/handlers"
	"github.com/ivankudzin/portfolio/internal/web"
)

type Dependencies struct {
	AuthService    *authsvc.Service
	ContentService *contentsvc.Service
	MediaService   *mediasvc.Service
	Renderer       *web.Renderer
	Profile        web.Profile
	Metrics        *metrics.Metrics
	PublicLimiter  *ratesvc.IPLimiter
	HealthChecks   map[string]handlers.HealthCheck
	Logger         *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	var counter handlers.ClassificationCounter
	if deps.Metrics != nil {
		counter = deps.Metrics
	}

	pageHandler := handlers.NewPageHandler(deps.ContentService, deps.Renderer, deps.Profile, counter, deps.Logger)
	embedHandler := handlers.NewEmbedHandler(counter)
	contentHandler := handlers.NewContentHandler(deps.ContentService, deps.Logger)
	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.Logger)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService, deps.Logger)
	healthHandler := handlers.NewHealthHandler()
	for name, check := range deps.HealthChecks {
		healthHandler.AttachCheck(name, check)
	}

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	editorMW := RequireRole(string(enums.AdminRoleOwner), string(enums.AdminRoleEditor))
	var limiter ipAllower
	if deps.PublicLimiter != nil {
		limiter = deps.PublicLimiter
	}
	publicMW := IPRateLimit(limiter)

	r.Get("/healthz", healthHandler.Get)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	r.With(publicMW).Get("/", pageHandler.Get)

	r.Route("/v1", func(r chi.Router) {
		r.With(publicMW).Get("/content", contentHandler.List)
		r.With(publicMW).Get("/embed", embedHandler.Get)

		r.Route("/admin/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.With(authMW).Post("/logout", authHandler.Logout)
			r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
			r.With(authMW).Get("/me", authHandler.Me)
			r.With(authMW).Post("/totp/setup", authHandler.TOTPSetup)
			r.With(authMW).Post("/totp/enable", authHandler.TOTPEnable)
		})

		r.Route("/admin/content", func(r chi.Router) {
			r.Use(authMW, editorMW)
			r.Get("/", contentHandler.AdminList)
			r.Post("/", contentHandler.Create)
			r.Put("/order", contentHandler.Reorder)
			r.Patch("/{id}", contentHandler.Update)
			r.Delete("/{id}", contentHandler.Delete)
		})

		r.With(authMW, editorMW).Post("/admin/media", mediaHandler.Upload)
	})
}
