package resilient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	outcomeSuccess    = "success"
	outcomeFailure    = "failure"
	outcomeSuperseded = "superseded"
	outcomeCanceled   = "canceled"
)

var (
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fellowship_resilient_attempts_total",
		Help: "Calls made by resilient operations, including retries",
	}, []string{"operation"})

	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fellowship_resilient_outcomes_total",
		Help: "Completed resilient operations by outcome",
	}, []string{"operation", "outcome"})

	rollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fellowship_resilient_rollbacks_total",
		Help: "Optimistic updates rolled back after a failed operation",
	}, []string{"operation"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fellowship_resilient_operation_duration_seconds",
		Help:    "Wall time of a resilient operation including backoff waits",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"operation"})
)
