package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Job pipeline metrics
	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_jobs_processed_total",
			Help: "Total number of statement jobs processed",
		},
		[]string{"status"},
	)

	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_job_duration_seconds",
			Help:    "End-to-end statement job processing duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	LotsParsedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_lots_parsed_total",
			Help: "Total number of transaction lots extracted from statements",
		},
	)

	DownloadRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_document_download_retries_total",
			Help: "Total number of document download retry attempts",
		},
	)

	// NAV data source metrics
	NavLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_nav_lookups_total",
			Help: "Total number of scheme resolution attempts",
		},
		[]string{"outcome"},
	)

	WorkerRestartsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_worker_restarts_total",
			Help: "Total number of worker slot restarts",
		},
	)
)
