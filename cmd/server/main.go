package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"github.com/kataria/backend/internal/backend"
	"github.com/kataria/backend/internal/config"
	"github.com/kataria/backend/internal/handler"
	"github.com/kataria/backend/internal/logging"
	"github.com/kataria/backend/internal/metrics"
	"github.com/kataria/backend/internal/repository"
	"github.com/kataria/backend/internal/service"
	"github.com/kataria/backend/internal/storage"
	"github.com/kataria/backend/internal/submissionid"
	"github.com/kataria/backend/internal/validation"
	"github.com/kataria/backend/internal/writer"
	"github.com/kataria/backend/pkg/auth"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("INFO")
		logging.Fatal("invalid configuration", "error", err)
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := backend.NewRegistry(cfg)
	defer registry.Close()

	// 保存先 3 段構成。フォールバックログは常に有効
	fallbackLog := storage.NewFallbackLog(cfg.Storage.FallbackLogPath)
	primary := registry.Get(ctx, cfg.Storage.PrimaryBackend)
	secondary := registry.Get(ctx, cfg.Storage.SecondaryBackend)
	w := writer.New(primary, secondary, fallbackLog, writer.WithTierTimeout(cfg.Storage.TierTimeout))
	for _, t := range w.Tiers() {
		slog.Info("storage tier", "tier", t.Tier, "backend", t.Backend, "configured", t.Configured)
	}

	contactService := service.NewContactService(
		validation.New(validation.ParseTier(cfg.ValidationTier)),
		submissionid.New(nil),
		w,
		registry.Reader(ctx, cfg.ReadBackendName(), fallbackLog),
	)

	// /api/health は primary が疎通確認できる場合のみ ping する
	var db repository.DB
	if p, ok := primary.(repository.DB); ok && primary.Configured() {
		db = p
	}
	h := handler.New(db, cfg.AllowedOrigins()...)
	contactHandler := handler.NewContactHandler(contactService, handler.ContactHandlerConfig{
		TrustedProxyCount: cfg.TrustedProxyCount,
		Development:       cfg.IsDevelopment(),
	})

	windowStore, closeStore := newWindowStore(cfg)
	defer closeStore()
	limiter := handler.NewRateLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window,
		handler.WithTrustedProxies(cfg.TrustedProxyCount),
		handler.WithWindowStore(windowStore),
	)

	// 認証必要エンドポイント。DevAuth は development のみ
	if cfg.AdminAuthRequired() && cfg.AdminAPIToken == "" {
		slog.Warn("ADMIN_API_TOKEN not set; submission listing is locked")
	}
	wrapAuth := func(next http.Handler) http.Handler {
		if cfg.AdminAuthRequired() {
			return auth.RequireToken(cfg.AdminAPIToken)(next)
		}
		return auth.DevAuth(next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/contact/health", contactHandler.Health)
	mux.Handle("POST /api/contact/submit", limiter.Middleware(http.HandlerFunc(contactHandler.Submit)))
	mux.Handle("GET /api/contact/submissions", wrapAuth(http.HandlerFunc(contactHandler.List)))
	mux.Handle("GET /metrics", metrics.Handler())

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler.RequestLogger(handler.SecurityHeaders(h.CORS(mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3*cfg.Storage.TierTimeout + 5*time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", server.Addr, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newWindowStore returns the Redis window store when RATE_LIMIT_REDIS_ADDR is
// set, else the in-memory one.
func newWindowStore(cfg *config.Config) (handler.WindowStore, func()) {
	if cfg.RateLimit.RedisAddr == "" {
		s := handler.NewMemoryWindowStore()
		return s, s.Close
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
	})
	return handler.NewRedisWindowStore(client, "contact:ratelimit:"), func() {
		if err := client.Close(); err != nil {
			slog.Warn("redis close failed", "error", err)
		}
	}
}
