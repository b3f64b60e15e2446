// Package metrics provides the centralized Prometheus registry for the
// harvester. All metrics are defined in their respective packages
// (statcast, cache, merge, harvest) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available
// metrics, plus the HTTP handler watch mode serves.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the harvester.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler exposing the registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Search Metrics (pkg/statcast):
//   - statcast_requests_total{query, status} (Counter): Provider requests by query kind and HTTP status
//   - statcast_request_duration_seconds{query} (Histogram): Request duration by query kind
//   - statcast_errors_total{failure_kind} (Counter): Failures by kind (network, rate_limited, malformed, truncated)
//   - statcast_rows_fetched_total{category} (Counter): Decoded pitch rows by event category
//
// Retry Metrics (pkg/statcast):
//   - statcast_retries_total{failure_kind} (Counter): Retry attempts by failure kind
//   - statcast_retry_backoff_seconds{failure_kind} (Histogram): Backoff duration by failure kind
//   - statcast_retry_exhausted_total{failure_kind} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - harvester_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - harvester_cache_misses_total (Counter): Cache misses
//   - harvester_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - harvester_cache_errors_total{operation} (Counter): Cache operation errors
//
// Merge Metrics (pkg/merge):
//   - harvester_rows_merged_total{category} (Counter): Rows written into published artifacts
//   - harvester_artifacts_published_total{category} (Counter): Artifact files atomically published
//
// Run Metrics (pkg/harvest):
//   - harvester_bisections_total (Counter): Truncated requests split into half-range retries
//   - harvester_request_failures_total{category} (Counter): Provider requests that ultimately failed
//
// Example Prometheus Queries:
//
//   # Truncation pressure
//   rate(harvester_bisections_total[1h])
//
//   # Provider error rate
//   rate(statcast_errors_total[5m])
//
//   # P95 search latency
//   histogram_quantile(0.95, rate(statcast_request_duration_seconds_bucket[5m]))
