package filter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skypro1111/media-filter-pipeline/internal/audio"
)

// ChunkFilter applies noise suppression to one chunk file at a time. It
// implements the per-chunk processing contract consumed by the pipeline
// orchestrator: read the chunk WAV, filter it, write the filtered WAV.
type ChunkFilter struct {
	processor *Processor
	logger    *slog.Logger
}

// NewChunkFilter creates a chunk filter backed by the given processor
func NewChunkFilter(processor *Processor, logger *slog.Logger) *ChunkFilter {
	return &ChunkFilter{
		processor: processor,
		logger:    logger,
	}
}

// ProcessChunk filters a single chunk. Any I/O or processing error is
// returned to the caller; the orchestrator converts it into a per-chunk
// failure without aborting other chunks.
func (f *ChunkFilter) ProcessChunk(ctx context.Context, chunk audio.Chunk) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("chunk %d cancelled before processing: %w", chunk.Index, err)
	}

	samples, sampleRate, err := audio.ReadWAVFile(chunk.Path)
	if err != nil {
		return fmt.Errorf("failed to read chunk %d: %w", chunk.Index, err)
	}

	if sampleRate != chunk.SampleRate {
		return fmt.Errorf("chunk %d sample rate mismatch: descriptor says %d, file says %d",
			chunk.Index, chunk.SampleRate, sampleRate)
	}

	filtered, err := f.processor.Process(samples)
	if err != nil {
		return fmt.Errorf("failed to filter chunk %d: %w", chunk.Index, err)
	}

	if err := audio.WriteWAVFile(chunk.FilteredPath, filtered, sampleRate); err != nil {
		return fmt.Errorf("failed to write filtered chunk %d: %w", chunk.Index, err)
	}

	f.logger.Debug("Chunk filtered",
		slog.String("chunk_id", chunk.ID()),
		slog.Int("samples", len(samples)),
		slog.Float64("offset", chunk.Offset.Seconds()),
		slog.Float64("duration", chunk.Duration.Seconds()),
	)

	return nil
}
