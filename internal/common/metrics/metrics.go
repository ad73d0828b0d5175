// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job worker metrics.
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
)

// Candidate data service metrics.
var (
	CandidateFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "candidate_fetch_total",
			Help: "Candidate list loads by the source that served them",
		},
		[]string{"source"},
	)

	CandidateFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "candidate_fetch_failures_total",
			Help: "Failed remote candidate reads by error kind",
		},
		[]string{"kind"},
	)

	RemoteReadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "remote_read_duration_seconds",
			Help:    "Latency of remote spreadsheet reads including retries",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	SkippedRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "candidate_rows_skipped_total",
			Help: "Rows excluded because they could not be mapped",
		},
	)

	AuthGateAuthorized = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auth_gate_authorized",
			Help: "1 when the remote store session is authorized",
		},
	)

	ConsecutiveFailures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "candidate_consecutive_failures",
			Help: "Current consecutive remote failure count",
		},
	)
)

// Activity tracker metrics.
var (
	ActivityQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "activity_queue_depth",
			Help: "Tracked events waiting for delivery",
		},
	)

	ActivityDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_delivered_total",
			Help: "Activity delivery attempts by result",
		},
		[]string{"result"},
	)
)

// HTTP API metrics.
var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
