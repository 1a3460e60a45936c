package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/portfolio/internal/config"
	"github.com/ivankudzin/portfolio/internal/infra/metrics"
	"github.com/ivankudzin/portfolio/internal/infra/retry"
	s3infra "github.com/ivankudzin/portfolio/internal/infra/s3"
	"github.com/ivankudzin/portfolio/internal/jobs/cleanup"
	pgrepo "github.com/ivankudzin/portfolio/internal/repo/postgres"
	redrepo "github.com/ivankudzin/portfolio/internal/repo/redis"
	authsvc "github.com/ivankudzin/portfolio/internal/services/auth"
	contentsvc "github.com/ivankudzin/portfolio/internal/services/content"
	mediasvc "github.com/ivankudzin/portfolio/internal/services/media"
	ratesvc "github.com/ivankudzin/portfolio/internal/services/rate"
	"github.com/ivankudzin/portfolio/internal/transport/http/handlers"
	"github.com/ivankudzin/portfolio/internal/web"
)

const redisConnectTimeout = 10 * time.Second

type App struct {
	cfg           config.Config
	logger        *zap.Logger
	server        *http.Server
	postgres      *pgxpool.Pool
	redis         *goredis.Client
	publicLimiter *ratesvc.IPLimiter
	cleanupJob    *cleanup.Job
	httpRouter    http.Handler
	wg            sync.WaitGroup
}

// New wires every dependency. Postgres, Redis and S3 failures are logged and
// the app starts degraded: the page renders with a notice and the admin API
// answers with errors until the dependency is back.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}

	appMetrics := metrics.New()
	r := chi.NewRouter()
	ApplyMiddlewares(r, log, appMetrics, cfg.HTTP.RequestTimeout)

	pool := connectPostgres(ctx, cfg.Postgres, log)

	redisClient := connectRedis(ctx, cfg.Redis, log)

	var s3Storage *mediasvc.S3Storage
	var s3Check handlers.HealthCheck
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, uploads are disabled", zap.Error(err))
		s3Storage = mediasvc.NewS3Storage(nil, cfg.S3.Bucket)
	} else {
		s3Storage = mediasvc.NewS3Storage(c, cfg.S3.Bucket)
		s3Check = s3Storage.Ping
	}

	contentRepo := pgrepo.NewContentRepo(pool)
	adminUserRepo := pgrepo.NewAdminUserRepo(pool)
	mediaObjectRepo := pgrepo.NewMediaObjectRepo(pool)
	sessionRepo := redrepo.NewSessionRepo(redisClient)

	contentService := contentsvc.NewService(contentRepo, log)
	if redisClient != nil {
		contentService.AttachCache(redrepo.NewCacheRepo(redisClient), cfg.Site.CacheTTL)
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(adminUserRepo, sessionRepo, jwtManager, authsvc.Options{
		RefreshTTL:   cfg.Auth.RefreshTTL,
		MaxAttempts:  cfg.Auth.LoginMaxAttempts,
		LockDuration: cfg.Auth.LoginLockDuration,
		TOTPIssuer:   cfg.Auth.TOTPIssuer,
	}, log)
	if redisClient != nil {
		authService.AttachLimiter(ratesvc.NewLimiter(
			redrepo.NewRateRepo(redisClient),
			cfg.RateLimit.LoginPerMinute,
			cfg.RateLimit.LoginPerHour,
		))
	}
	if cipher, err := authsvc.NewSecretCipher(secretCipherKey(cfg.Auth)); err != nil {
		log.Warn("totp secret cipher unavailable, totp setup is disabled", zap.Error(err))
	} else {
		authService.AttachSecretCipher(cipher)
	}

	mediaStorage := mediasvc.NewBreakerStorage(s3Storage, log)
	mediaService := mediasvc.NewService(mediaObjectRepo, mediaStorage, mediasvc.Options{
		Bucket:        cfg.S3.Bucket,
		PublicBaseURL: cfg.S3.PublicBaseURL,
		MaxBytes:      cfg.Media.MaxUploadMB << 20,
	}, log)

	publicLimiter := ratesvc.NewIPLimiter(cfg.RateLimit.PublicPerMinute, cfg.RateLimit.PublicBurst)

	var cleanupJob *cleanup.Job
	if cfg.Cleanup.Enabled && pool != nil {
		cleanupJob = cleanup.New(mediaObjectRepo, mediaService, cleanup.Options{
			Interval:  cfg.Cleanup.Interval,
			Grace:     cfg.Cleanup.Grace,
			BatchSize: cfg.Cleanup.BatchSize,
		}, log)
	}

	RegisterRoutes(r, Dependencies{
		AuthService:    authService,
		ContentService: contentService,
		MediaService:   mediaService,
		Renderer:       renderer,
		Profile:        ProfileFromConfig(cfg.Site),
		Metrics:        appMetrics,
		PublicLimiter:  publicLimiter,
		HealthChecks:   healthChecks(pool, redisClient, s3Check),
		Logger:         log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:           cfg,
		logger:        log,
		server:        server,
		postgres:      pool,
		redis:         redisClient,
		publicLimiter: publicLimiter,
		cleanupJob:    cleanupJob,
		httpRouter:    r,
	}, nil
}

// Run starts the background workers and blocks serving HTTP. Workers stop
// when ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.publicLimiter.Run(ctx)
	}()
	if a.cleanupJob != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.cleanupJob.Run(ctx)
		}()
	}

	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("background workers did not stop before shutdown deadline")
	}

	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

// connectPostgres waits for the database with backoff and applies the schema.
// A nil pool means degraded mode.
func connectPostgres(ctx context.Context, cfg config.PostgresConfig, log *zap.Logger) *pgxpool.Pool {
	pool, err := pgrepo.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
		return nil
	}

	err = retry.Connect(ctx, "postgres", cfg.ConnectTimeout, log, func(ctx context.Context) error {
		return pgrepo.Ping(ctx, pool)
	})
	if err == nil {
		err = pgrepo.ApplySchema(ctx, pool)
	}
	if err != nil {
		log.Warn("postgres unavailable, continuing in degraded mode", zap.Error(err))
		pool.Close()
		return nil
	}
	return pool
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) *goredis.Client {
	if strings.TrimSpace(cfg.Addr) == "" {
		log.Warn("redis addr is empty, continuing without cache and sessions")
		return nil
	}

	var client *goredis.Client
	err := retry.Connect(ctx, "redis", redisConnectTimeout, log, func(ctx context.Context) error {
		c, err := redrepo.NewClient(ctx, redrepo.ClientConfig{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		log.Warn("redis unavailable, continuing without cache and sessions", zap.Error(err))
		return nil
	}
	return client
}

func healthChecks(pool *pgxpool.Pool, redisClient *goredis.Client, s3Check handlers.HealthCheck) map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{
		"postgres": nil,
		"redis":    nil,
		"s3":       s3Check,
	}
	if pool != nil {
		checks["postgres"] = func(ctx context.Context) error { return pgrepo.Ping(ctx, pool) }
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return checks
}

// secretCipherKey prefers a dedicated TOTP key so rotating the JWT secret does
// not orphan enrolled authenticators.
func secretCipherKey(cfg config.AuthConfig) string {
	if key := strings.TrimSpace(cfg.TOTPSecretKey); key != "" {
		return key
	}
	return cfg.JWTSecret
}

func ProfileFromConfig(site config.SiteConfig) web.Profile {
	profile := web.Profile{
		OwnerName:    site.OwnerName,
		Tagline:      site.Tagline,
		Story:        site.Story,
		ContactEmail: site.ContactEmail,
	}
	for _, link := range site.Socials {
		profile.Socials = append(profile.Socials, web.Link{Label: link.Label, URL: link.URL})
	}
	for _, box := range site.Journey {
		out := web.JourneyBox{Title: box.Title}
		for _, item := range box.Items {
			out.Items = append(out.Items, web.JourneyItem{Label: item.Label, Value: item.Value, Link: item.Link})
		}
		profile.Journey = append(profile.Journey, out)
	}
	return profile
}
