package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SplitterConfig contains configuration for the splitting process
type SplitterConfig struct {
	ChunkDuration time.Duration // Target duration of each chunk
	SampleRate    int
	WorkDir       string // Base directory for per-run temp files
}

// Splitter slices decoded PCM audio into fixed-duration chunks and writes
// each chunk as a standalone mono WAV file under a per-run directory.
type Splitter struct {
	config SplitterConfig

	// Statistics
	chunksCreated uint64
	bytesWritten  uint64

	mu sync.RWMutex
}

// SplitterStats represents splitter statistics
type SplitterStats struct {
	ChunksCreated uint64 `json:"chunks_created"`
	BytesWritten  uint64 `json:"bytes_written"`
}

// NewSplitter creates a new audio splitter
func NewSplitter(config SplitterConfig) (*Splitter, error) {
	if config.ChunkDuration <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %v", config.ChunkDuration)
	}

	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}

	if config.WorkDir == "" {
		config.WorkDir = os.TempDir()
	}

	return &Splitter{config: config}, nil
}

// Split produces chunk descriptors covering the samples in order. The final
// chunk absorbs the remainder and may be shorter than the target duration.
// No files are written; descriptors carry the paths WriteChunks will use.
func (s *Splitter) Split(samples []int16) ([]Chunk, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot split empty audio")
	}

	samplesPerChunk := int(float64(s.config.SampleRate) * s.config.ChunkDuration.Seconds())
	if samplesPerChunk <= 0 {
		return nil, fmt.Errorf("chunk duration %v too short for sample rate %d",
			s.config.ChunkDuration, s.config.SampleRate)
	}

	runDir := filepath.Join(s.config.WorkDir, "run_"+uuid.NewString())

	chunks := make([]Chunk, 0, (len(samples)+samplesPerChunk-1)/samplesPerChunk)
	for start := 0; start < len(samples); start += samplesPerChunk {
		end := start + samplesPerChunk
		if end > len(samples) {
			end = len(samples)
		}

		index := len(chunks)
		chunks = append(chunks, Chunk{
			Index:        index,
			StartSample:  start,
			NumSamples:   end - start,
			Offset:       sampleDuration(start, s.config.SampleRate),
			Duration:     sampleDuration(end-start, s.config.SampleRate),
			SampleRate:   s.config.SampleRate,
			Path:         filepath.Join(runDir, fmt.Sprintf("chunk_%03d.wav", index)),
			FilteredPath: filepath.Join(runDir, fmt.Sprintf("chunk_%03d_filtered.wav", index)),
		})
	}

	return chunks, nil
}

// WriteChunks encodes each chunk's sample range as a WAV file at the
// chunk's input path, creating the per-run directory on first use.
func (s *Splitter) WriteChunks(samples []int16, chunks []Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to write")
	}

	if err := os.MkdirAll(filepath.Dir(chunks[0].Path), 0755); err != nil {
		return fmt.Errorf("failed to create chunk directory: %w", err)
	}

	for _, chunk := range chunks {
		end := chunk.StartSample + chunk.NumSamples
		if chunk.StartSample < 0 || end > len(samples) {
			return fmt.Errorf("chunk %d range [%d:%d] outside audio of %d samples",
				chunk.Index, chunk.StartSample, end, len(samples))
		}

		data, err := EncodeWAV(samples[chunk.StartSample:end], chunk.SampleRate)
		if err != nil {
			return fmt.Errorf("failed to encode chunk %d: %w", chunk.Index, err)
		}

		if err := os.WriteFile(chunk.Path, data, 0644); err != nil {
			return fmt.Errorf("failed to write chunk %d: %w", chunk.Index, err)
		}

		s.mu.Lock()
		s.chunksCreated++
		s.bytesWritten += uint64(len(data))
		s.mu.Unlock()
	}

	return nil
}

// GetStats returns current splitter statistics
func (s *Splitter) GetStats() SplitterStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SplitterStats{
		ChunksCreated: s.chunksCreated,
		BytesWritten:  s.bytesWritten,
	}
}

// sampleDuration converts a sample count to wall-clock duration
func sampleDuration(samples, sampleRate int) time.Duration {
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}
