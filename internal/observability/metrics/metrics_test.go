package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestLeadMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLeadMetrics(reg)

	m.ObserveSubmission(OutcomeCreated)
	m.ObserveSubmission(OutcomeCreated)
	m.ObserveSubmission(OutcomeInvalid)
	m.ObserveReset(OutcomeCleared)
	m.ObserveRateLimited("api")

	if got := testutil.ToFloat64(m.submissionsTotal.WithLabelValues(OutcomeCreated)); got != 2 {
		t.Fatalf("expected 2 created submissions, got %v", got)
	}
	if got := testutil.ToFloat64(m.submissionsTotal.WithLabelValues(OutcomeInvalid)); got != 1 {
		t.Fatalf("expected 1 invalid submission, got %v", got)
	}
	if got := testutil.ToFloat64(m.resetsTotal.WithLabelValues(OutcomeCleared)); got != 1 {
		t.Fatalf("expected 1 reset, got %v", got)
	}
	if got := testutil.ToFloat64(m.rateLimitedTotal.WithLabelValues("api")); got != 1 {
		t.Fatalf("expected 1 rate limited request, got %v", got)
	}
}

func TestLeadMetricsStoreLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLeadMetrics(reg)
	m.ObserveStoreLatency("insert", 0.02)
	m.ObserveStoreLatency("insert", 0.03)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var family *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "leadcapture_leads_store_latency_seconds" {
			family = f
		}
	}
	if family == nil {
		t.Fatal("store latency histogram not registered")
	}
	if got := family.GetMetric()[0].GetHistogram().GetSampleCount(); got != 2 {
		t.Fatalf("expected 2 samples, got %d", got)
	}
}

func TestLeadMetricsNilSafe(t *testing.T) {
	var m *LeadMetrics
	m.ObserveSubmission(OutcomeCreated)
	m.ObserveReset(OutcomeError)
	m.ObserveRateLimited("api")
	m.ObserveStoreLatency("clear", 0.1)
}
