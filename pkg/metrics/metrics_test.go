package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestHTTPMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("GET", "/api/products/nearby", 200, 120*time.Millisecond)
	m.Observe("GET", "/api/products/nearby", 200, 80*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "http_requests_total", "route", "/api/products/nearby"); err != nil {
		t.Fatalf("fetch requests: %v", err)
	} else if got != 2 {
		t.Fatalf("expected requests=2, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "route", "/api/products/nearby"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.Observe("GET", "/", 200, time.Millisecond)

	unregistered := NewHTTPMetrics(nil)
	unregistered.Observe("GET", "/", 200, time.Millisecond)
}

func TestMarketplaceMetricsRefreshOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMarketplaceMetrics(reg)
	m.ObserveRefresh(50*time.Millisecond, nil)
	m.ObserveRefresh(30*time.Millisecond, errors.New("boom"))
	m.SetActiveStores(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := fetchScalar(t, mfs, "marketplace_refresh_success_total"); got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}
	if got := fetchScalar(t, mfs, "marketplace_refresh_failure_total"); got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}
	if got := fetchScalar(t, mfs, "marketplace_active_stores"); got != 3 {
		t.Fatalf("expected active stores=3, got %f", got)
	}
}

func fetchScalar(t *testing.T, mfs []*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		t.Fatalf("metric %q not found", name)
	}
	metric := mf.GetMetric()[0]
	if counter := metric.GetCounter(); counter != nil {
		return counter.GetValue()
	}
	return metric.GetGauge().GetValue()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
