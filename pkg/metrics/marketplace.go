package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketplaceMetrics records cache refresh outcomes for the in-memory store.
type MarketplaceMetrics struct {
	refreshDuration prometheus.Histogram
	refreshSuccess  prometheus.Counter
	refreshFailure  prometheus.Counter
	activeStores    prometheus.Gauge
}

// NewMarketplaceMetrics registers the marketplace metrics on the provided registerer.
func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	refreshDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketplace_refresh_duration_seconds",
		Help:    "Duration of full cache refetches in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	refreshSuccess := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_refresh_success_total",
		Help: "Completed cache refetches.",
	})
	refreshFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_refresh_failure_total",
		Help: "Failed cache refetches.",
	})
	activeStores := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "marketplace_active_stores",
		Help: "Session-scoped stores currently held by the registry.",
	})
	reg.MustRegister(refreshDuration, refreshSuccess, refreshFailure, activeStores)
	return &MarketplaceMetrics{
		refreshDuration: refreshDuration,
		refreshSuccess:  refreshSuccess,
		refreshFailure:  refreshFailure,
		activeStores:    activeStores,
	}
}

// ObserveRefresh records one refresh attempt and its outcome.
func (m *MarketplaceMetrics) ObserveRefresh(elapsed time.Duration, err error) {
	if m == nil || m.refreshDuration == nil {
		return
	}
	m.refreshDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.refreshFailure.Inc()
		return
	}
	m.refreshSuccess.Inc()
}

// SetActiveStores updates the live store gauge.
func (m *MarketplaceMetrics) SetActiveStores(count int) {
	if m == nil || m.activeStores == nil {
		return
	}
	m.activeStores.Set(float64(count))
}
