package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the insights service.
type Metrics struct {
	// Dataset metrics
	DatasetLoads       *prometheus.CounterVec
	DatasetLoadLatency *prometheus.HistogramVec
	DatasetCampaigns   prometheus.Gauge

	// View metrics
	ViewBuilds       *prometheus.CounterVec
	ViewBuildLatency *prometheus.HistogramVec
	ViewGroups       *prometheus.GaugeVec
	CacheLookups     *prometheus.CounterVec

	// Export metrics
	ExportedGroups *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPLatency   *prometheus.HistogramVec
	RateLimitHits *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates all metrics and registers them with reg. A nil reg uses a fresh
// registry, which keeps tests isolated.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		DatasetLoads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dataset_loads_total",
				Help:      "Dataset loads by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		DatasetLoadLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dataset_load_seconds",
				Help:      "Dataset load latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"source"},
		),
		DatasetCampaigns: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dataset_campaigns",
				Help:      "Number of campaigns in the last loaded dataset",
			},
		),

		ViewBuilds: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "view_builds_total",
				Help:      "View payloads built by view and outcome",
			},
			[]string{"view", "outcome"},
		),
		ViewBuildLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "view_build_seconds",
				Help:      "Aggregation latency per view in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"view"},
		),
		ViewGroups: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "view_groups",
				Help:      "Groups produced by the last build of a view",
			},
			[]string{"view"},
		),
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Report cache lookups by layer and result",
			},
			[]string{"layer", "result"},
		),

		ExportedGroups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exported_groups_total",
				Help:      "Aggregated groups exported by dimension",
			},
			[]string{"dimension"},
		),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		HTTPLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"scope"},
		),

		gatherer: reg,
	}
}

// Handler returns the HTTP handler exposing these metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordDatasetLoad records one dataset load attempt.
func (m *Metrics) RecordDatasetLoad(source string, err error, latency time.Duration, campaigns int) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.DatasetLoads.WithLabelValues(source, outcome).Inc()
	m.DatasetLoadLatency.WithLabelValues(source).Observe(latency.Seconds())
	if err == nil {
		m.DatasetCampaigns.Set(float64(campaigns))
	}
}

// RecordViewBuild records one view build.
func (m *Metrics) RecordViewBuild(view string, groups int, latency time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ViewBuilds.WithLabelValues(view, outcome).Inc()
	if err != nil {
		return
	}
	m.ViewBuildLatency.WithLabelValues(view).Observe(latency.Seconds())
	m.ViewGroups.WithLabelValues(view).Set(float64(groups))
}

// RecordCacheLookup records a hit or miss on a cache layer ("memo" or "redis").
func (m *Metrics) RecordCacheLookup(layer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(layer, result).Inc()
}

// RecordExport records exported groups.
func (m *Metrics) RecordExport(dimension string, groups int) {
	m.ExportedGroups.WithLabelValues(dimension).Add(float64(groups))
}

// RecordHTTPRequest records a served request.
func (m *Metrics) RecordHTTPRequest(route string, status int, latency time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(latency.Seconds())
}

// RecordRateLimitHit records a rate limit rejection.
func (m *Metrics) RecordRateLimitHit(scope string) {
	m.RateLimitHits.WithLabelValues(scope).Inc()
}
