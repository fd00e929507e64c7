package roster

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for collection runs.
var (
	rosterRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_runs_total",
		Help: "Total roster collection runs by result",
	}, []string{"result"}) // completed, forbidden, failed, exhausted, cancelled

	rosterMembersCollected = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "roster_members_collected",
		Help:    "Unique members returned per run",
		Buckets: prometheus.ExponentialBuckets(10, 10, 6),
	})

	rosterPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roster_pages_total",
		Help: "Total pages merged into accumulators",
	})

	rosterRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_retries_total",
		Help: "Total number of page retries by reason",
	}, []string{"reason"})

	rosterRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roster_retry_backoff_seconds",
		Help:    "Backoff duration for retries by reason",
		Buckets: []float64{0.5, 1, 3, 5, 10, 30, 60},
	}, []string{"reason"})

	rosterRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by reason",
	}, []string{"reason"})
)
