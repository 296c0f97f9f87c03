package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	OptimizationsTotal *prometheus.CounterVec
	OptimizeSeconds    prometheus.Histogram
	FetchSeconds       *prometheus.HistogramVec
	RiskNodes          prometheus.Histogram
	CacheHits          *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		OptimizationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "goldenhour_optimizations_total",
			Help: "Total number of optimization runs.",
		}, []string{"status"}),
		OptimizeSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "goldenhour_optimize_duration_seconds",
			Help:    "Duration of optimization runs, classification through assembly.",
			Buckets: prometheus.DefBuckets,
		}),
		FetchSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goldenhour_network_fetch_duration_seconds",
			Help:    "Duration of road network fetches by source.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"source"}),
		RiskNodes: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "goldenhour_risk_nodes",
			Help:    "Number of risk nodes classified per run.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		CacheHits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "goldenhour_result_cache_requests_total",
			Help: "Result cache lookups by outcome.",
		}, []string{"outcome"}),
	}
}
