package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/leadcapture/cmd/mainconfig"
	"github.com/wolfman30/leadcapture/internal/api/router"
	appconfig "github.com/wolfman30/leadcapture/internal/config"
	"github.com/wolfman30/leadcapture/internal/database"
	httpmiddleware "github.com/wolfman30/leadcapture/internal/http/middleware"
	"github.com/wolfman30/leadcapture/internal/leads"
	"github.com/wolfman30/leadcapture/internal/observability/metrics"
	"github.com/wolfman30/leadcapture/pkg/logging"
)

// janitorInterval is how often the in-memory limiter drops idle clients.
const janitorInterval = time.Minute

func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting lead capture API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"lead_store", cfg.LeadStore,
		"rate_limit_backend", cfg.RateLimitBackend,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsHandler, leadMetrics := setupMetrics()
	if !cfg.MetricsEnabled {
		metricsHandler = nil
	}

	// Initialize repositories and rate limiting
	leadsRepo, closeStore, err := setupLeadRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize lead store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	limiter, closeLimiter, err := setupLimiter(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize rate limiter", "error", err)
		os.Exit(1)
	}
	defer closeLimiter()

	// Initialize handlers
	leadsHandler := leads.NewHandler(leadsRepo, logger,
		leads.WithMetrics(leadMetrics),
		leads.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		LeadsHandler:       leadsHandler,
		Limiter:            limiter,
		KeyFunc:            httpmiddleware.ClientIP(cfg.TrustProxy),
		Metrics:            leadMetrics,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustProxy:         cfg.TrustProxy,
		MaxBodyBytes:       cfg.MaxBodyBytes,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		closeLimiter()
		closeStore()
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// setupMetrics builds a private registry so only lead-capture and runtime
// series are exported.
func setupMetrics() (http.Handler, *metrics.LeadMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	leadMetrics := metrics.NewLeadMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), leadMetrics
}

// setupLeadRepository opens the configured store. The returned func releases
// its connections and is safe to call more than once.
func setupLeadRepository(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (leads.Repository, func(), error) {
	noop := func() {}

	driver, dsn, persistent, err := mainconfig.MigrationTarget(cfg)
	if err != nil {
		return nil, noop, err
	}
	if !persistent {
		logger.Warn("using in-memory lead store; leads are lost on restart")
		return leads.NewInMemoryRepository(), noop, nil
	}

	if cfg.AutoMigrate {
		if err := database.Migrate(driver, dsn, logger); err != nil {
			return nil, noop, err
		}
		logger.Info("migrations applied", "driver", driver)
	}

	switch driver {
	case database.DriverPostgres:
		pool := connectPostgresPool(ctx, dsn, logger)
		if pool == nil {
			return nil, noop, errors.New("postgres lead store unavailable")
		}
		return leads.NewPostgresRepository(pool), sync.OnceFunc(pool.Close), nil
	default:
		db, err := database.OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("connected to sqlite", "path", dsn)
		return leads.NewSQLiteRepository(db), sync.OnceFunc(func() { _ = db.Close() }), nil
	}
}

func connectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if url == "" {
		return nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := database.OpenPostgres(connectCtx, url, database.PoolOptions{MaxConns: 10})
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		return nil
	}
	logger.Info("connected to postgres")
	return pool
}

// setupLimiter returns the per-client limiter shared by every /api route.
func setupLimiter(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (httpmiddleware.Limiter, func(), error) {
	switch cfg.RateLimitBackend {
	case appconfig.LimiterRedis:
		rdb := redis.NewClient(mainconfig.RedisOptions(cfg))
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, func() {}, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("rate limiting via redis", "addr", cfg.RedisAddr, "max", cfg.RateLimitMax, "window", cfg.RateLimitWindow)
		limiter := httpmiddleware.NewRedisLimiter(rdb, cfg.RateLimitMax, cfg.RateLimitWindow,
			httpmiddleware.WithKeyPrefix("leadcapture:ratelimit"))
		return limiter, sync.OnceFunc(func() { _ = rdb.Close() }), nil
	default:
		limiter := httpmiddleware.NewSlidingWindowLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
		go limiter.Run(ctx, janitorInterval)
		logger.Info("rate limiting in memory", "max", cfg.RateLimitMax, "window", cfg.RateLimitWindow)
		return limiter, func() {}, nil
	}
}
