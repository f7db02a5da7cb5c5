// Package metrics defines custom Prometheus metrics for folderstore.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// registerOnce ensures Register() is idempotent.
var registerOnce sync.Once

// HTTP metrics (RED: Rate, Errors, Duration).
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folderstore_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency in seconds by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folderstore_http_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Domain metrics.
var (
	// FileOperationsTotal counts dispatched file operations by operation and
	// status.
	FileOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folderstore_file_operations_total",
			Help: "File operations by type",
		},
		[]string{"operation", "status"},
	)

	// ValidationsTotal counts connection validation attempts by outcome kind.
	ValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folderstore_validations_total",
			Help: "Connection validation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// EntriesLoaded is a gauge tracking currently loaded connection entries.
	EntriesLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "folderstore_entries_loaded",
			Help: "Currently loaded connection entries",
		},
	)
)

// Register registers all Prometheus collectors with the default registry.
// Called explicitly from main so registration can be made conditional on
// configuration. Safe to call multiple times.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			FileOperationsTotal,
			ValidationsTotal,
			EntriesLoaded,
		)
		// Initialize FileOperationsTotal so it appears in /metrics output
		// before any operations have run.
		FileOperationsTotal.WithLabelValues("list_files", "success")
	})
}

// NormalizePath maps request paths to low-cardinality templates suitable for
// metric labels.
func NormalizePath(path string) string {
	switch path {
	case "/health", "/healthz", "/metrics", "/openapi.json", "/", "":
		if path == "" {
			return "/"
		}
		return path
	}
	if strings.HasPrefix(path, "/docs") {
		return "/docs"
	}
	if strings.HasPrefix(path, "/api/entries") {
		if path == "/api/entries" {
			return "/api/entries"
		}
		return "/api/entries/{id}"
	}
	if strings.HasPrefix(path, "/api/files/") {
		return path
	}
	if strings.HasPrefix(path, "/api/backups") {
		if path == "/api/backups" {
			return "/api/backups"
		}
		if strings.HasSuffix(path, "/download") {
			return "/api/backups/{id}/download"
		}
		return "/api/backups/{id}"
	}
	return "/other"
}
