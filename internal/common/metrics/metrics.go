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

	CandidateCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_candidate_cache_total",
			Help: "Candidate cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	ProviderFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_provider_fallbacks_total",
			Help: "Provider responses replaced by the deterministic fallback, by stage",
		},
		[]string{"stage"},
	)

	MatchesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_matches_persisted_total",
			Help: "Matches written by the persistence policy",
		},
	)

	MatchEntriesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_entries_dropped_total",
			Help: "Ranked entries not persisted, by reason",
		},
		[]string{"reason"},
	)

	BatchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_batch_failures_total",
			Help: "Profiles skipped during batch runs after a failure",
		},
	)

	NudgesDue = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_nudges_due_total",
			Help: "Due nudges computed, by type",
		},
		[]string{"type"},
	)

	NudgesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_nudges_dispatched_total",
			Help: "Nudge deliveries by type and status",
		},
		[]string{"type", "status"},
	)
)
