// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the extraction and bulk-run
// pipeline.
type Metrics struct {
	registry *prometheus.Registry

	PagesScanned     prometheus.Counter
	RecordsExtracted *prometheus.CounterVec
	BulkRunsTotal    *prometheus.CounterVec
	BulkRunDuration  prometheus.Histogram
	NavigationErrors prometheus.Counter
	ExportsTotal     *prometheus.CounterVec
	StoreSize        *prometheus.GaugeVec
}

// NewMetrics creates the metric set on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		PagesScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pagehound",
			Name:      "pages_scanned_total",
			Help:      "Pages scanned by any extraction pathway",
		}),
		RecordsExtracted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagehound",
			Name:      "records_extracted_total",
			Help:      "Raw records produced by detection, before dedup",
		}, []string{"type"}),
		BulkRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagehound",
			Name:      "bulk_runs_total",
			Help:      "Completed bulk runs",
		}, []string{"trigger"}),
		BulkRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pagehound",
			Name:      "bulk_run_duration_seconds",
			Help:      "Wall time of complete bulk runs",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		NavigationErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pagehound",
			Name:      "navigation_errors_total",
			Help:      "URLs skipped due to load failures or timeouts",
		}),
		ExportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagehound",
			Name:      "exports_total",
			Help:      "Export operations by format",
		}, []string{"format"}),
		StoreSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pagehound",
			Name:      "store_records",
			Help:      "Records accumulated in the store per type",
		}, []string{"type"}),
	}
}

// ObserveExtraction records the per-type record counts of one page scan.
func (m *Metrics) ObserveExtraction(data map[string][]any) {
	m.PagesScanned.Inc()
	for typeKey, records := range data {
		m.RecordsExtracted.WithLabelValues(typeKey).Add(float64(len(records)))
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
