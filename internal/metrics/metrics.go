// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ingestRunsTotal        *prometheus.CounterVec
	vacanciesSavedTotal    *prometheus.CounterVec
	recordErrorsTotal      *prometheus.CounterVec
	ingestDurationSeconds  *prometheus.HistogramVec
	clientRequestsTotal    *prometheus.CounterVec
	clientRequestDuration  *prometheus.HistogramVec
	regionCacheEventsTotal *prometheus.CounterVec

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		ingestRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vacancy_ingest_runs_total",
				Help: "Total ingestion runs, labeled by platform and terminal status.",
			},
			[]string{"platform", "status"},
		)

		vacanciesSavedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vacancy_saved_total",
				Help: "Total vacancy records upserted, labeled by platform.",
			},
			[]string{"platform"},
		)

		recordErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vacancy_record_errors_total",
				Help: "Per-record failures inside completed runs, labeled by platform and stage.",
			},
			[]string{"platform", "stage"},
		)

		ingestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vacancy_ingest_duration_seconds",
				Help:    "Histogram of full ingestion run latencies, labeled by platform.",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"platform"},
		)

		clientRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vacancy_http_client_requests_total",
				Help: "Upstream HTTP requests, labeled by host and status code.",
			},
			[]string{"host", "code"},
		)

		clientRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vacancy_http_client_request_duration_seconds",
				Help:    "Histogram of upstream request latencies, labeled by host.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"host"},
		)

		regionCacheEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vacancy_region_cache_events_total",
				Help: "Region-mapping cache hits, misses, and rebuild failures, labeled by platform.",
			},
			[]string{"platform", "event"},
		)
	})
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// RecordRun counts a finished ingestion run.
func RecordRun(platform, status string, elapsed time.Duration) {
	Init()
	ingestRunsTotal.WithLabelValues(platform, status).Inc()
	ingestDurationSeconds.WithLabelValues(platform).Observe(elapsed.Seconds())
}

// AddSaved counts upserted records for a platform.
func AddSaved(platform string, n int) {
	Init()
	if n > 0 {
		vacanciesSavedTotal.WithLabelValues(platform).Add(float64(n))
	}
}

// AddRecordError counts a skipped record at the given pipeline stage.
func AddRecordError(platform, stage string) {
	Init()
	recordErrorsTotal.WithLabelValues(platform, stage).Inc()
}

// RecordRegionCacheEvent counts a cache hit, miss, or rebuild failure.
func RecordRegionCacheEvent(platform, event string) {
	Init()
	regionCacheEventsTotal.WithLabelValues(platform, event).Inc()
}

// ObserveClientRequest records one upstream HTTP request outcome. A zero
// status means the request never produced a response.
func ObserveClientRequest(target string, status int, elapsed time.Duration) {
	Init()
	host := sanitizeHost(target)
	code := "none"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	clientRequestsTotal.WithLabelValues(host, code).Inc()
	clientRequestDuration.WithLabelValues(host).Observe(elapsed.Seconds())
}

// sanitizeHost reduces a URL to a lowercase hostname to keep label
// cardinality bounded.
func sanitizeHost(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
