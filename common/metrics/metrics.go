// Package metrics holds the Prometheus collectors shared by the server and worker.
// Labels stay low-cardinality: no user, task or reflection ids.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "forest"

var (
	// ReflectionsTotal counts processed reflections by outcome (ok, llm_fallback, error).
	ReflectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reflections_total",
		Help:      "Total reflections processed, by outcome.",
	}, []string{"outcome"})

	// TaskCompletionsTotal counts task completions by tier and whether the task was found.
	TaskCompletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_completions_total",
		Help:      "Total task completions, by tier and result.",
	}, []string{"tier", "result"})

	// XPAwardedTotal sums XP handed out across all users.
	XPAwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "xp_awarded_total",
		Help:      "Total XP awarded for completed tasks.",
	})

	// WitheringLevel observes the withering level after each reflection.
	WitheringLevel = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "withering_level",
		Help:      "Withering level observed after processing a reflection.",
		Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.7, 0.9, 1},
	})

	// LLMRequestsTotal counts LLM calls by response schema and outcome.
	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_requests_total",
		Help:      "Total LLM requests, by schema and outcome.",
	}, []string{"schema", "outcome"})

	// LLMRequestDuration tracks LLM latency by response schema.
	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_request_duration_seconds",
		Help:      "LLM request latency, by schema.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
	}, []string{"schema"})

	// QueueJobsTotal counts background jobs by type and outcome (enqueued, done, retried, dead).
	QueueJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_jobs_total",
		Help:      "Total background jobs, by type and outcome.",
	}, []string{"type", "outcome"})

	// RateLimitedTotal counts HTTP requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_rate_limited_total",
		Help:      "Total HTTP requests rejected by the rate limiter.",
	})

	// WorkerHeartbeat is the unix time of the worker's last healthy heartbeat.
	WorkerHeartbeat = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_last_heartbeat_seconds",
		Help:      "Unix time of the last heartbeat with all dependencies reachable.",
	})

	// ArchetypeReloadsTotal counts archetype file reloads by outcome.
	ArchetypeReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "archetype_reloads_total",
		Help:      "Total archetype definition reloads, by outcome.",
	}, []string{"outcome"})
)
