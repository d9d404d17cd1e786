package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	httpmiddleware "github.com/wolfman30/leadcapture/internal/http/middleware"
	"github.com/wolfman30/leadcapture/internal/leads"
	"github.com/wolfman30/leadcapture/internal/observability/metrics"
	"github.com/wolfman30/leadcapture/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger       *logging.Logger
	LeadsHandler *leads.Handler

	// Limiter guards every /api route with one shared budget per client.
	// Nil disables rate limiting.
	Limiter httpmiddleware.Limiter
	KeyFunc httpmiddleware.KeyFunc
	Metrics *metrics.LeadMetrics

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	TrustProxy         bool
	MaxBodyBytes       int64
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.LeadsHandler == nil {
		panic("router: leads handler required")
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = leads.DefaultMaxBodyBytes
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httpmiddleware.ClientIP(cfg.TrustProxy)
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(otelhttp.NewMiddleware("leadcapture.http"))
	r.Use(httpmiddleware.SecureHeaders)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.LeadsHandler.HealthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Lead API. Oversized bodies are refused before they spend rate budget.
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.BodyLimit(maxBody))
		api.Use(httpmiddleware.RateLimit(httpmiddleware.RateLimitOptions{
			Limiter: cfg.Limiter,
			KeyFunc: keyFunc,
			Logger:  cfg.Logger,
			Metrics: cfg.Metrics,
			Scope:   "api",
		}))
		api.Mount("/", cfg.LeadsHandler.Routes())
	})

	return r
}
