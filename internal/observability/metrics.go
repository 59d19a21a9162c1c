package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for a sitemap generation run.
type Metrics struct {
	Registry *prometheus.Registry

	CatalogEntries    prometheus.Gauge
	EntriesEmitted    prometheus.Counter
	Groups            prometheus.Gauge
	EntriesPublished  prometheus.Counter
	RunErrors         *prometheus.CounterVec // labels: stage={catalog,validate,build,encode,write,publish}
	RunDuration       prometheus.Histogram
	LastRunTimestamp  prometheus.Gauge
	DocumentSizeBytes prometheus.Gauge
}

// NewMetrics creates the run metrics on a dedicated registry. The tool is a
// one-shot batch job, so the registry is either exported to a textfile or served
// by the preview server, never the global default.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CatalogEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "location_sitemap",
			Name:      "catalog_entries",
			Help:      "Number of locations in the loaded catalog.",
		}),
		EntriesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "location_sitemap",
			Name:      "entries_emitted_total",
			Help:      "Total <url> entries written to the sitemap document.",
		}),
		Groups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "location_sitemap",
			Name:      "priority_groups",
			Help:      "Number of distinct priority groups in the last document.",
		}),
		EntriesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "location_sitemap",
			Name:      "entries_published_total",
			Help:      "Total sitemap entries published to Kafka.",
		}),
		RunErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "location_sitemap",
			Name:      "run_errors_total",
			Help:      "Generation failures by pipeline stage.",
		}, []string{"stage"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "location_sitemap",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete generation run.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "location_sitemap",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful generation run.",
		}),
		DocumentSizeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "location_sitemap",
			Name:      "document_size_bytes",
			Help:      "Size of the last rendered sitemap document.",
		}),
	}

	m.Registry.MustRegister(
		m.CatalogEntries,
		m.EntriesEmitted,
		m.Groups,
		m.EntriesPublished,
		m.RunErrors,
		m.RunDuration,
		m.LastRunTimestamp,
		m.DocumentSizeBytes,
	)

	return m
}

// WriteTextfile exports the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
