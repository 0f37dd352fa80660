package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Prune pipeline metrics
	PruneOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "winnow_prune_operations_total",
		Help: "Total number of prune pipeline runs",
	}, []string{"status"})

	PruneLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "winnow_prune_latency_seconds",
		Help:    "End-to-end latency of prune pipeline runs",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	FeaturesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winnow_features_dropped_total",
		Help: "Total number of output features dropped across runs",
	})

	FeaturesKept = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "winnow_features_kept",
		Help: "Number of output features kept by the most recent run",
	})

	// Result cache metrics
	CacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "winnow_cache_operations_total",
		Help: "Total number of result cache operations",
	}, []string{"operation", "status"})

	CacheLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "winnow_cache_latency_seconds",
		Help:    "Latency of result cache operations",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"operation"})

	// Export metrics
	ExportBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "winnow_export_batches_total",
		Help: "Total number of embedding batches exported",
	}, []string{"status"})

	ExportedVectors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winnow_exported_vectors_total",
		Help: "Total number of reduced vectors exported",
	})
)
