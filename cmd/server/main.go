// Package main is the entrypoint for the blackcms API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hamzaawan7/blackcms/internal/api"
	"github.com/hamzaawan7/blackcms/internal/api/handler"
	mw "github.com/hamzaawan7/blackcms/internal/api/middleware"
	"github.com/hamzaawan7/blackcms/internal/api/response"
	"github.com/hamzaawan7/blackcms/internal/cache"
	"github.com/hamzaawan7/blackcms/internal/config"
	"github.com/hamzaawan7/blackcms/internal/event"
	"github.com/hamzaawan7/blackcms/internal/lifecycle"
	"github.com/hamzaawan7/blackcms/internal/metrics"
	"github.com/hamzaawan7/blackcms/internal/store"
	"github.com/hamzaawan7/blackcms/internal/tenant"
	"github.com/hamzaawan7/blackcms/internal/version"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Local development convenience; absence of a .env file is fine.
	godotenv.Load()

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	m := metrics.New(prometheus.DefaultRegisterer)
	pgStore := store.NewPostgresStore(pool)

	resolver, err := buildResolver(ctx, pgStore, cfg.Tenancy)
	if err != nil {
		return fmt.Errorf("build tenant resolver: %w", err)
	}

	entities := store.NewScoped(pgStore, resolver)

	engine := version.NewEngine(pgStore)
	// Pages and services only version on meaningful edits; every other
	// entity type snapshots on each mutation.
	engine.DeclareSignificantFields("page", "title", "body", "_slug", "_is_published", "_publish_status")
	engine.DeclareSignificantFields("service", "title", "description", "price", "_slug", "_is_published", "_publish_status")

	bus := event.NewBus(cfg.Events.SinkTimeout, m)
	bus.Register(event.NewWebhookSink(pgStore))
	bus.Register(event.NewInvalidationSink(redisCache))
	defer bus.Close()

	coord := lifecycle.NewCoordinator(entities, engine, bus, redisCache, m)

	auth := mw.NewAuth(pgStore, redisCache)
	rateLimit := mw.NewRateLimit(redisCache, cfg.Server.RequestsPerMinute)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: healthHandler(pgStore, redisCache),

		CreateEntity: handler.NewCreateEntityHandler(coord),
		UpdateEntity: handler.NewUpdateEntityHandler(coord),
		GetEntity:    handler.NewGetEntityHandler(entities, redisCache),
		ListEntities: handler.NewListEntitiesHandler(entities),
		DeleteEntity: handler.NewDeleteEntityHandler(coord),

		ListVersions:   handler.NewListVersionsHandler(coord),
		DiffVersions:   handler.NewDiffVersionsHandler(coord),
		RestoreVersion: handler.NewRestoreVersionHandler(coord),

		CreateTenant:    handler.NewCreateTenantHandler(coord),
		ListTenants:     handler.NewListTenantsHandler(pgStore),
		DeleteTenant:    handler.NewDeleteTenantHandler(coord),
		SwitchTenant:    handler.NewSwitchTenantHandler(coord),
		ResetTenant:     handler.NewResetTenantHandler(coord),
		InvalidateCache: handler.NewInvalidateCacheHandler(coord),

		CreateKey: handler.NewCreateKeyHandler(pgStore),
		ListKeys:  handler.NewListKeysHandler(pgStore),
		RevokeKey: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// buildResolver wires the process-wide fallback tenant for CLI/background
// contexts when one is configured.
func buildResolver(ctx context.Context, s store.Store, cfg config.TenancyConfig) (*tenant.Resolver, error) {
	if cfg.DefaultTenantSlug == "" {
		return tenant.NewResolver(), nil
	}
	t, err := s.GetTenantBySlug(ctx, cfg.DefaultTenantSlug)
	if err != nil {
		return nil, fmt.Errorf("default tenant %q: %w", cfg.DefaultTenantSlug, err)
	}
	return tenant.NewResolverWithFallback(t.ID), nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
