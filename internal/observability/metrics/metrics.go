package metrics

import "github.com/prometheus/client_golang/prometheus"

// Submission outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeInvalid  = "invalid"
	OutcomeTooLarge = "too_large"
	OutcomeError    = "error"
	OutcomeCleared  = "cleared"
)

// LeadMetrics exposes counters/histograms for the lead-capture surface.
type LeadMetrics struct {
	submissionsTotal *prometheus.CounterVec
	resetsTotal      *prometheus.CounterVec
	rateLimitedTotal *prometheus.CounterVec
	storeLatency     *prometheus.HistogramVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadcapture",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Lead submissions by outcome",
		}, []string{"outcome"}),
		resetsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadcapture",
			Subsystem: "leads",
			Name:      "resets_total",
			Help:      "Lead table resets by outcome",
		}, []string{"outcome"}),
		rateLimitedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadcapture",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limit",
		}, []string{"scope"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadcapture",
			Subsystem: "leads",
			Name:      "store_latency_seconds",
			Help:      "Latency of lead store calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.resetsTotal, m.rateLimitedTotal, m.storeLatency)
	return m
}

func (m *LeadMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *LeadMetrics) ObserveReset(outcome string) {
	if m == nil {
		return
	}
	m.resetsTotal.WithLabelValues(outcome).Inc()
}

func (m *LeadMetrics) ObserveRateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimitedTotal.WithLabelValues(scope).Inc()
}

func (m *LeadMetrics) ObserveStoreLatency(op string, seconds float64) {
	if m == nil {
		return
	}
	m.storeLatency.WithLabelValues(op).Observe(seconds)
}
