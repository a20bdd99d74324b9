package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skypro1111/media-filter-pipeline/internal/audio"
	"github.com/skypro1111/media-filter-pipeline/internal/metrics"
	"github.com/skypro1111/media-filter-pipeline/internal/pool"
)

// ChunkProcessor processes one chunk and reports failure through its error.
// Implementations may perform file I/O and invoke a processing library.
type ChunkProcessor interface {
	ProcessChunk(ctx context.Context, chunk audio.Chunk) error
}

// Result is the outcome of one orchestrated run over a set of chunks
type Result struct {
	AllSucceeded    bool  `json:"all_succeeded"`
	FailedChunks    []int `json:"failed_chunks,omitempty"`
	ChunksProcessed int   `json:"chunks_processed"`
}

// Orchestrator submits one task per chunk to an explicitly owned worker
// pool, collects every future in submission order, and aggregates the
// boolean outcomes with logical AND.
type Orchestrator struct {
	pool      *pool.Pool[bool]
	processor ChunkProcessor
	logger    *slog.Logger
	metrics   *metrics.Metrics // Optional; nil disables instrumentation

	// Statistics
	runsCompleted   uint64
	chunksProcessed uint64
	chunksFailed    uint64

	mu sync.RWMutex
}

// OrchestratorStats represents orchestrator statistics
type OrchestratorStats struct {
	RunsCompleted   uint64 `json:"runs_completed"`
	ChunksProcessed uint64 `json:"chunks_processed"`
	ChunksFailed    uint64 `json:"chunks_failed"`
}

// NewOrchestrator creates an orchestrator bound to the given pool and
// per-chunk processor. The pool is owned by the caller; the orchestrator
// never shuts it down.
func NewOrchestrator(p *pool.Pool[bool], processor ChunkProcessor, logger *slog.Logger, m *metrics.Metrics) (*Orchestrator, error) {
	if p == nil {
		return nil, fmt.Errorf("pool must not be nil")
	}

	if processor == nil {
		return nil, fmt.Errorf("processor must not be nil")
	}

	return &Orchestrator{
		pool:      p,
		processor: processor,
		logger:    logger,
		metrics:   m,
	}, nil
}

// FilterChunks processes all chunks concurrently and returns the aggregate
// outcome. Every submitted chunk runs to completion even after a failure is
// observed; collection is the only blocking point. The aggregate is the
// logical AND of all per-chunk outcomes: it reflects a failure no matter
// which chunk failed or in which order the workers finished.
func (o *Orchestrator) FilterChunks(ctx context.Context, chunks []audio.Chunk) Result {
	if len(chunks) == 0 {
		return Result{AllSucceeded: true}
	}

	o.logger.Info("Filtering chunks",
		slog.Int("chunk_count", len(chunks)),
	)

	futures := make([]*pool.Future[bool], len(chunks))
	for i, chunk := range chunks {
		chunk := chunk
		future, err := o.pool.Submit(func() (bool, error) {
			return o.processChunk(ctx, chunk), nil
		})
		if err != nil {
			// Submission rejected (pool shut down). The nil future is
			// counted as a failed chunk during collection.
			o.logger.Error("Chunk submission rejected",
				slog.String("chunk_id", chunk.ID()),
				slog.String("error", err.Error()),
			)
			continue
		}
		futures[i] = future
	}

	// Collect in submission order and accumulate with AND, never plain
	// assignment: overwriting would keep only the last chunk's outcome.
	allSucceeded := true
	var failedChunks []int

	for i, future := range futures {
		succeeded := false
		if future != nil {
			value, err := future.Wait()
			if err != nil {
				// A panic inside the task surfaces here; it counts as a
				// failure for that chunk only.
				o.logger.Error("Chunk task failed",
					slog.String("chunk_id", chunks[i].ID()),
					slog.String("error", err.Error()),
				)
			} else {
				succeeded = value
			}
		}

		allSucceeded = allSucceeded && succeeded
		if !succeeded {
			failedChunks = append(failedChunks, chunks[i].Index)
		}
	}

	o.mu.Lock()
	o.runsCompleted++
	o.chunksProcessed += uint64(len(chunks))
	o.chunksFailed += uint64(len(failedChunks))
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.PipelineRuns.Inc()
	}

	o.logger.Info("Chunk filtering completed",
		slog.Int("chunk_count", len(chunks)),
		slog.Int("failed_count", len(failedChunks)),
		slog.Bool("all_succeeded", allSucceeded),
	)

	return Result{
		AllSucceeded:    allSucceeded,
		FailedChunks:    failedChunks,
		ChunksProcessed: len(chunks),
	}
}

// RetryFailed reruns only the chunks whose indices are listed in failed.
// Retrying is an explicit step layered on top of aggregation; it is never
// folded into FilterChunks itself.
func (o *Orchestrator) RetryFailed(ctx context.Context, chunks []audio.Chunk, failed []int) Result {
	wanted := make(map[int]bool, len(failed))
	for _, index := range failed {
		wanted[index] = true
	}

	retry := make([]audio.Chunk, 0, len(failed))
	for _, chunk := range chunks {
		if wanted[chunk.Index] {
			retry = append(retry, chunk)
		}
	}

	o.logger.Info("Retrying failed chunks",
		slog.Int("retry_count", len(retry)),
	)

	return o.FilterChunks(ctx, retry)
}

// GetStats returns current orchestrator statistics
func (o *Orchestrator) GetStats() OrchestratorStats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return OrchestratorStats{
		RunsCompleted:   o.runsCompleted,
		ChunksProcessed: o.chunksProcessed,
		ChunksFailed:    o.chunksFailed,
	}
}

// processChunk runs the external processor for one chunk and converts any
// failure into a false outcome at the task boundary, so a bad chunk cannot
// propagate a fault through the pool.
func (o *Orchestrator) processChunk(ctx context.Context, chunk audio.Chunk) bool {
	startTime := time.Now()

	err := o.processor.ProcessChunk(ctx, chunk)
	duration := time.Since(startTime)

	if o.metrics != nil {
		o.metrics.ChunkFilterDuration.Observe(duration.Seconds())
	}

	if err != nil {
		if o.metrics != nil {
			o.metrics.ChunksFailed.Inc()
		}

		o.logger.Error("Chunk processing failed",
			slog.String("chunk_id", chunk.ID()),
			slog.Float64("duration", duration.Seconds()),
			slog.String("error", err.Error()),
		)

		return false
	}

	if o.metrics != nil {
		o.metrics.ChunksFiltered.Inc()
	}

	o.logger.Debug("Chunk processed",
		slog.String("chunk_id", chunk.ID()),
		slog.Float64("duration", duration.Seconds()),
	)

	return true
}
