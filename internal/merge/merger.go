package merge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/skypro1111/media-filter-pipeline/internal/audio"
)

// Merger joins an ordered list of chunk files into one output file
type Merger interface {
	Merge(ctx context.Context, chunkPaths []string, dest string) error
}

// FFmpegMerger merges chunk files with an external ffmpeg invocation
type FFmpegMerger struct {
	binary string
	logger *slog.Logger

	// Statistics
	mergesCompleted uint64
	mergesFailed    uint64

	mu sync.RWMutex
}

// MergerStats represents merger statistics
type MergerStats struct {
	MergesCompleted uint64 `json:"merges_completed"`
	MergesFailed    uint64 `json:"merges_failed"`
}

// NewFFmpegMerger creates a merger using the given ffmpeg binary path.
// An empty path falls back to "ffmpeg" on PATH.
func NewFFmpegMerger(binary string, logger *slog.Logger) *FFmpegMerger {
	if binary == "" {
		binary = "ffmpeg"
	}

	return &FFmpegMerger{
		binary: binary,
		logger: logger,
	}
}

// Merge concatenates the chunk files, in the given order, into dest
func (m *FFmpegMerger) Merge(ctx context.Context, chunkPaths []string, dest string) error {
	if len(chunkPaths) == 0 {
		return fmt.Errorf("no chunk files to merge")
	}

	listPath, err := writeConcatList(chunkPaths)
	if err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	defer os.Remove(listPath)

	m.logger.Info("Merging chunks",
		slog.Int("chunk_count", len(chunkPaths)),
		slog.String("dest", dest),
	)

	if err := m.run(ctx, buildConcatArgs(listPath, dest)); err != nil {
		m.mu.Lock()
		m.mergesFailed++
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.mergesCompleted++
	m.mu.Unlock()

	return nil
}

// GetStats returns current merger statistics
func (m *FFmpegMerger) GetStats() MergerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MergerStats{
		MergesCompleted: m.mergesCompleted,
		MergesFailed:    m.mergesFailed,
	}
}

// SuccessfulPaths returns the filtered-output paths of the chunks that
// succeeded, in chunk index order, for a best-effort merge of partial
// results.
func SuccessfulPaths(chunks []audio.Chunk, failed []int) []string {
	failedSet := make(map[int]bool, len(failed))
	for _, index := range failed {
		failedSet[index] = true
	}

	ordered := make([]audio.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	paths := make([]string, 0, len(ordered))
	for _, chunk := range ordered {
		if !failedSet[chunk.Index] {
			paths = append(paths, chunk.FilteredPath)
		}
	}

	return paths
}

// buildConcatArgs builds the ffmpeg argument list for a concat-demuxer merge
func buildConcatArgs(listPath, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		dest,
	}
}

// writeConcatList writes a concat-demuxer file list to a temp file and
// returns its path. Single quotes in paths are escaped per ffmpeg rules.
func writeConcatList(paths []string) (string, error) {
	file, err := os.CreateTemp("", "mediafilter_concat_*.txt")
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for _, path := range paths {
		escaped := strings.ReplaceAll(path, "'", `'\''`)
		fmt.Fprintf(&builder, "file '%s'\n", escaped)
	}

	if _, err := file.WriteString(builder.String()); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", err
	}

	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", err
	}

	return file.Name(), nil
}
