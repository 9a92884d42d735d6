// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	AnalyzerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_runs_total",
			Help: "Analyzer executions by outcome",
		},
		[]string{"analyzer", "status"},
	)

	CatalogFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_fetch_failures_total",
			Help: "Catalog fetches that degraded to an empty list",
		},
		[]string{"kind"},
	)

	TranslationCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_cache_hits_total",
			Help: "Translation cache lookups by result",
		},
		[]string{"result"},
	)

	SessionSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_saves_total",
			Help: "Session save attempts by result (written, skipped, failed)",
		},
		[]string{"result"},
	)

	DocumentsExported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_exported_total",
			Help: "Documents exported by format",
		},
		[]string{"format"},
	)

	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_delivery_attempts_total",
			Help: "Post-export delivery attempts by channel and result",
		},
		[]string{"channel", "result"},
	)
)
