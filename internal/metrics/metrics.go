// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gallery"

var (
	// Ingests counts upload attempts by outcome ("ok" or an error kind).
	Ingests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingests_total",
		Help:      "Image ingestion attempts by outcome.",
	}, []string{"outcome"})

	// IngestedBytes sums the size of successfully stored images.
	IngestedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingested_bytes_total",
		Help:      "Bytes of images stored by successful ingests.",
	})

	// CacheLookups counts catalog page lookups by tier ("local", "remote", "store").
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_cache_lookups_total",
		Help:      "Catalog page lookups by the tier that answered them.",
	}, []string{"tier"})

	// CleanupDeletes counts object deletions performed by the cleanup task.
	CleanupDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cleanup_deletes_total",
		Help:      "Object cleanup decisions by result (deleted, kept, failed).",
	}, []string{"result"})

	// BatchChunks counts batch edit chunks by result.
	BatchChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batch_chunks_total",
		Help:      "Batch edit chunks by result (committed, failed).",
	}, []string{"result"})

	// BackgroundTaskFailures counts failed background tasks by name.
	BackgroundTaskFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "background_task_failures_total",
		Help:      "Failed background tasks by task name.",
	}, []string{"task"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
