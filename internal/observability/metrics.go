// Package observability provides the logger factory and Prometheus metrics
// for the fetch pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "inmet_fetch"

// Metrics holds the Prometheus counters, histograms, and gauges for a fetch run.
type Metrics struct {
	ArchivesDownloaded prometheus.Counter
	DownloadBytes      prometheus.Counter
	MembersExtracted   prometheus.Counter
	TablesNormalized   prometheus.Counter
	DecodeFailures     prometheus.Counter
	ItemFailures       *prometheus.CounterVec // label: stage={index,year,archive,member}
	FetchRunning       prometheus.Gauge
	CombinedRows       prometheus.Gauge

	DownloadDuration prometheus.Histogram
}

// NewMetrics creates and registers all fetch metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ArchivesDownloaded,
		m.DownloadBytes,
		m.MembersExtracted,
		m.TablesNormalized,
		m.DecodeFailures,
		m.ItemFailures,
		m.FetchRunning,
		m.CombinedRows,
		m.DownloadDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ArchivesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archives_downloaded_total",
			Help:      "Total ZIP archives downloaded from the portal.",
		}),
		DownloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Total bytes downloaded, archives and pages combined.",
		}),
		MembersExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "members_extracted_total",
			Help:      "Total station-matching CSV members extracted from archives.",
		}),
		TablesNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tables_normalized_total",
			Help:      "Total per-member tables that normalized into records.",
		}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "CSV members no decode strategy could read.",
		}),
		ItemFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_failures_total",
			Help:      "Per-item failures by pipeline stage.",
		}, []string{"stage"}),
		FetchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while a fetch run is active, 0 otherwise.",
		}),
		CombinedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "combined_rows",
			Help:      "Row count of the last combined dataset.",
		}),
		DownloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Duration of individual portal downloads.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}
