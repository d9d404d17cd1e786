package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/leadcapture/internal/observability/metrics"
	"github.com/wolfman30/leadcapture/pkg/logging"
)

// DefaultRateLimitMessage is returned to every client over its budget.
const DefaultRateLimitMessage = "Too many requests, please try again later."

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAfter is the time until the oldest counted request leaves the window.
	ResetAfter time.Duration
}

// Limiter admits or rejects one request for key. Check and record happen as a
// single atomic step.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// SlidingWindowLimiter keeps a per-key log of admitted request times in
// process memory.
type SlidingWindowLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

// LimiterOption customizes a limiter.
type LimiterOption func(*limiterOptions)

type limiterOptions struct {
	now    func() time.Time
	prefix string
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) LimiterOption {
	return func(o *limiterOptions) { o.now = now }
}

// WithKeyPrefix namespaces Redis keys.
func WithKeyPrefix(prefix string) LimiterOption {
	return func(o *limiterOptions) { o.prefix = strings.TrimRight(prefix, ":") }
}

func buildLimiterOptions(opts []LimiterOption) limiterOptions {
	o := limiterOptions{now: time.Now, prefix: "ratelimit"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewSlidingWindowLimiter allows limit requests per key in any window-long
// interval.
func NewSlidingWindowLimiter(limit int, window time.Duration, opts ...LimiterOption) *SlidingWindowLimiter {
	o := buildLimiterOptions(opts)
	return &SlidingWindowLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    o.now,
	}
}

// Allow implements Limiter.
func (l *SlidingWindowLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := prune(l.hits[key], now.Add(-l.window))
	dec := Decision{Limit: l.limit}
	if len(hits) < l.limit {
		hits = append(hits, now)
		dec.Allowed = true
	}
	l.hits[key] = hits

	dec.Remaining = l.limit - len(hits)
	dec.ResetAfter = l.window
	if len(hits) > 0 {
		dec.ResetAfter = hits[0].Add(l.window).Sub(now)
	}
	return dec, nil
}

// Cleanup drops keys whose every entry has left the window.
func (l *SlidingWindowLimiter) Cleanup() {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, hits := range l.hits {
		hits = prune(hits, cutoff)
		if len(hits) == 0 {
			delete(l.hits, key)
			continue
		}
		l.hits[key] = hits
	}
}

// Keys returns the number of tracked clients.
func (l *SlidingWindowLimiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// Run evicts idle keys every interval until ctx is done.
func (l *SlidingWindowLimiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// prune removes entries at or before cutoff. hits is sorted ascending.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}

// KeyFunc derives the client identity used to bucket requests.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by network address. With trustProxy the proxy
// headers are read in the same order chi's RealIP uses: True-Client-IP,
// X-Real-IP, then the first X-Forwarded-For hop. A header value that is not
// an IP falls back to RemoteAddr.
func ClientIP(trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		if trustProxy {
			if ip := forwardedIP(r); ip != "" {
				return ip
			}
		}

		addr := strings.TrimSpace(r.RemoteAddr)
		if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
			return host
		}
		if addr != "" {
			return addr
		}
		return "unknown"
	}
}

func forwardedIP(r *http.Request) string {
	var ip string
	if tcip := r.Header.Get("True-Client-IP"); tcip != "" {
		ip = tcip
	} else if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		ip = xrip
	} else if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ = strings.Cut(xff, ",")
	}
	if ip == "" || net.ParseIP(ip) == nil {
		return ""
	}
	return ip
}

// RateLimitOptions configures the RateLimit middleware.
type RateLimitOptions struct {
	Limiter Limiter
	KeyFunc KeyFunc
	Logger  *logging.Logger
	Metrics *metrics.LeadMetrics
	// Scope labels rejections in metrics, e.g. "api".
	Scope   string
	Message string
}

// RateLimit returns an HTTP middleware that rejects requests exceeding the
// configured budget with 429 Too Many Requests. Limiter failures let the
// request through.
func RateLimit(opts RateLimitOptions) func(http.Handler) http.Handler {
	if opts.KeyFunc == nil {
		opts.KeyFunc = ClientIP(false)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Message == "" {
		opts.Message = DefaultRateLimitMessage
	}
	if opts.Scope == "" {
		opts.Scope = "default"
	}

	return func(next http.Handler) http.Handler {
		if opts.Limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFunc(r)
			dec, err := opts.Limiter.Allow(r.Context(), key)
			if err != nil {
				opts.Logger.Error("rate limiter unavailable", "error", err, "key", key)
				next.ServeHTTP(w, r)
				return
			}

			resetSeconds := strconv.Itoa(int(math.Ceil(dec.ResetAfter.Seconds())))
			w.Header().Set("RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			w.Header().Set("RateLimit-Reset", resetSeconds)

			if !dec.Allowed {
				opts.Logger.Warn("rate limit exceeded", "key", key, "path", r.URL.Path)
				opts.Metrics.ObserveRateLimited(opts.Scope)
				w.Header().Set("Retry-After", resetSeconds)
				writeError(w, http.StatusTooManyRequests, opts.Message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
