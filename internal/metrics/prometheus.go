package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the media filter pipeline
type Metrics struct {
	// Pipeline metrics
	PipelineRuns        prometheus.Counter
	ChunksFiltered      prometheus.Counter
	ChunksFailed        prometheus.Counter
	ChunkFilterDuration prometheus.Histogram

	// Merge metrics
	MergesCompleted prometheus.Counter
	MergesFailed    prometheus.Counter
	MergeDuration   prometheus.Histogram

	// Worker pool metrics
	PoolQueueDepth     prometheus.Gauge
	PoolTasksCompleted prometheus.Gauge
	PoolTasksPanicked  prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Pipeline metrics
		PipelineRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mediafilter_pipeline_runs_total",
			Help: "Total number of chunk filtering runs",
		}),
		ChunksFiltered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mediafilter_chunks_filtered_total",
			Help: "Total number of chunks filtered successfully",
		}),
		ChunksFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mediafilter_chunks_failed_total",
			Help: "Total number of chunks that failed filtering",
		}),
		ChunkFilterDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediafilter_chunk_filter_duration_seconds",
			Help:    "Time spent filtering one chunk",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~41s
		}),

		// Merge metrics
		MergesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mediafilter_merges_completed_total",
			Help: "Total number of successful chunk merges",
		}),
		MergesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mediafilter_merges_failed_total",
			Help: "Total number of failed chunk merges",
		}),
		MergeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediafilter_merge_duration_seconds",
			Help:    "Time spent merging filtered chunks",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		}),

		// Worker pool metrics
		PoolQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mediafilter_pool_queue_depth",
			Help: "Current number of tasks waiting in the worker pool queue",
		}),
		PoolTasksCompleted: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mediafilter_pool_tasks_completed",
			Help: "Total number of tasks completed by the worker pool",
		}),
		PoolTasksPanicked: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mediafilter_pool_tasks_panicked",
			Help: "Total number of tasks that panicked during execution",
		}),
	}
}
