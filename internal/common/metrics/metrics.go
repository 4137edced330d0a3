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

	InquirySyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inquiry_syncs_total",
			Help: "Inquiry lead syncs by form type and terminal status",
		},
		[]string{"form_type", "status", "error_code"},
	)

	InquirySyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inquiry_sync_duration_seconds",
			Help:    "Duration of one inquiry lead sync including retries",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"form_type"},
	)

	CRMRequestAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_request_attempts_total",
			Help: "Outbound CRM HTTP attempts by outcome",
		},
		[]string{"target", "outcome"},
	)

	StoreWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inquiry_store_write_failures_total",
			Help: "Sync status writes that could not be persisted",
		},
		[]string{"status"},
	)
)
