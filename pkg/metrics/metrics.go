// Package metrics exposes the Prometheus metrics of the roster collector.
// All metrics are defined in their respective packages (client, roster, checkpoint)
// to maintain modularity and avoid circular dependencies.
//
// This package provides the HTTP exposition and a reference of all available metrics.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the collector.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer returns an HTTP server exposing /metrics and /health on addr.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", healthHandler)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - roster_requests_total{outcome} (Counter): Page requests by outcome (success, retryable, rate_limited, forbidden, failed)
//   - roster_request_duration_seconds (Histogram): Page request duration
//   - roster_errors_total{class} (Counter): Errors by class (network, rate_limit, forbidden, client, server, decode, cancelled)
//
// Run Metrics (pkg/roster):
//   - roster_runs_total{result} (Counter): Finished runs (completed, forbidden, failed, exhausted, cancelled)
//   - roster_members_collected (Histogram): Members returned by completed runs
//   - roster_pages_total (Counter): Pages merged
//
// Retry Metrics (pkg/roster):
//   - roster_retries_total{reason} (Counter): Retry waits by error class
//   - roster_retry_backoff_seconds{reason} (Histogram): Wait duration by error class
//   - roster_retry_exhausted_total{reason} (Counter): Pages that used up MaxAttempts
//
// Checkpoint Metrics (pkg/checkpoint):
//   - roster_checkpoint_operations_total{operation, result} (Counter): Store calls by result
//
// Example Prometheus Queries:
//
//   # Rate limit pressure
//   rate(roster_retries_total{reason="rate_limit"}[5m])
//
//   # Share of runs that did not complete
//   sum(rate(roster_runs_total{result!="completed"}[1h])) / sum(rate(roster_runs_total[1h]))
//
//   # P95 page latency
//   histogram_quantile(0.95, rate(roster_request_duration_seconds_bucket[5m]))
