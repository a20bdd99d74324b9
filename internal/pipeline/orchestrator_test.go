package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skypro1111/media-filter-pipeline/internal/audio"
	"github.com/skypro1111/media-filter-pipeline/internal/pool"
)

// stubProcessor fails the configured chunk indices and records every chunk
// it was asked to process. Optional gates let tests force the order in
// which chunks complete.
type stubProcessor struct {
	failIndices  map[int]bool
	panicIndices map[int]bool
	gates        map[int]chan struct{}

	mu        sync.Mutex
	processed []int
}

func (s *stubProcessor) ProcessChunk(ctx context.Context, chunk audio.Chunk) error {
	if gate, ok := s.gates[chunk.Index]; ok {
		<-gate
	}

	s.mu.Lock()
	s.processed = append(s.processed, chunk.Index)
	s.mu.Unlock()

	if s.panicIndices[chunk.Index] {
		panic(fmt.Sprintf("processor blew up on chunk %d", chunk.Index))
	}

	if s.failIndices[chunk.Index] {
		return fmt.Errorf("chunk %d failed", chunk.Index)
	}

	return nil
}

func (s *stubProcessor) processedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processed)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeChunks(count int) []audio.Chunk {
	chunks := make([]audio.Chunk, count)
	for i := range chunks {
		chunks[i] = audio.Chunk{
			Index:      i,
			SampleRate: 48000,
			Duration:   time.Second,
		}
	}
	return chunks
}

func newTestOrchestrator(t *testing.T, workers int, processor ChunkProcessor) (*Orchestrator, *pool.Pool[bool]) {
	t.Helper()

	p, err := pool.New[bool](workers)
	if err != nil {
		t.Fatalf("pool.New failed: %v", err)
	}
	t.Cleanup(p.Shutdown)

	o, err := NewOrchestrator(p, processor, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}

	return o, p
}

func TestNewOrchestratorValidation(t *testing.T) {
	p, err := pool.New[bool](1)
	if err != nil {
		t.Fatalf("pool.New failed: %v", err)
	}
	defer p.Shutdown()

	if _, err := NewOrchestrator(nil, &stubProcessor{}, testLogger(), nil); err == nil {
		t.Error("NewOrchestrator should reject a nil pool")
	}

	if _, err := NewOrchestrator(p, nil, testLogger(), nil); err == nil {
		t.Error("NewOrchestrator should reject a nil processor")
	}
}

func TestAllChunksSucceed(t *testing.T) {
	o, _ := newTestOrchestrator(t, 4, &stubProcessor{})

	result := o.FilterChunks(context.Background(), makeChunks(4))

	if !result.AllSucceeded {
		t.Error("Aggregate should be true when every chunk succeeds")
	}
	if len(result.FailedChunks) != 0 {
		t.Errorf("Expected no failed chunks, got %v", result.FailedChunks)
	}
	if result.ChunksProcessed != 4 {
		t.Errorf("Expected 4 chunks processed, got %d", result.ChunksProcessed)
	}
}

// A failure must make the aggregate false no matter where it sits in the
// sequence. Plain overwrite aggregation would pass only some of these.
func TestFailurePositionNeverMasked(t *testing.T) {
	tests := []struct {
		name string
		fail map[int]bool
	}{
		{"first chunk fails", map[int]bool{0: true}},
		{"middle chunk fails", map[int]bool{2: true}},
		{"last chunk fails", map[int]bool{3: true}},
		{"all but one fail", map[int]bool{0: true, 1: true, 3: true}},
		{"all fail", map[int]bool{0: true, 1: true, 2: true, 3: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _ := newTestOrchestrator(t, 4, &stubProcessor{failIndices: tt.fail})

			result := o.FilterChunks(context.Background(), makeChunks(4))

			if result.AllSucceeded {
				t.Error("Aggregate should be false when any chunk fails")
			}
			if len(result.FailedChunks) != len(tt.fail) {
				t.Errorf("Expected %d failed chunks, got %v", len(tt.fail), result.FailedChunks)
			}
			for _, index := range result.FailedChunks {
				if !tt.fail[index] {
					t.Errorf("Chunk %d reported failed but was not configured to fail", index)
				}
			}
		})
	}
}

// Regression: chunk 0 fails while the later chunks succeed. Overwrite-based
// aggregation keeps only the last completion and incorrectly reports
// overall success.
func TestEarlyFailureNotOverwrittenByLaterSuccess(t *testing.T) {
	processor := &stubProcessor{
		failIndices: map[int]bool{0: true},
		gates: map[int]chan struct{}{
			0: make(chan struct{}),
			1: make(chan struct{}),
			2: make(chan struct{}),
			3: make(chan struct{}),
		},
	}

	o, _ := newTestOrchestrator(t, 4, processor)

	// Release the failing chunk first so the successes complete after it
	go func() {
		close(processor.gates[0])
		for i := 1; i < 4; i++ {
			time.Sleep(10 * time.Millisecond)
			close(processor.gates[i])
		}
	}()

	result := o.FilterChunks(context.Background(), makeChunks(4))

	if result.AllSucceeded {
		t.Error("Later successes must not overwrite an earlier failure")
	}
	if len(result.FailedChunks) != 1 || result.FailedChunks[0] != 0 {
		t.Errorf("Expected failed chunks [0], got %v", result.FailedChunks)
	}
}

// Permuting completion order must never change the aggregate for a fixed
// set of per-chunk outcomes.
func TestAggregateIndependentOfCompletionOrder(t *testing.T) {
	orders := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{2, 0, 3, 1},
		{1, 3, 0, 2},
	}

	for _, order := range orders {
		t.Run(fmt.Sprintf("completion order %v", order), func(t *testing.T) {
			processor := &stubProcessor{
				failIndices: map[int]bool{2: true},
				gates: map[int]chan struct{}{
					0: make(chan struct{}),
					1: make(chan struct{}),
					2: make(chan struct{}),
					3: make(chan struct{}),
				},
			}

			o, _ := newTestOrchestrator(t, 4, processor)

			go func() {
				for _, index := range order {
					close(processor.gates[index])
					time.Sleep(5 * time.Millisecond)
				}
			}()

			result := o.FilterChunks(context.Background(), makeChunks(4))

			if result.AllSucceeded {
				t.Errorf("Aggregate should be false for completion order %v", order)
			}
		})
	}
}

// One failing chunk must not stop the other chunks from running and
// reporting their own results.
func TestFailureDoesNotAbortOtherChunks(t *testing.T) {
	processor := &stubProcessor{failIndices: map[int]bool{0: true}}
	o, _ := newTestOrchestrator(t, 2, processor)

	result := o.FilterChunks(context.Background(), makeChunks(8))

	if result.AllSucceeded {
		t.Error("Aggregate should be false")
	}
	if processor.processedCount() != 8 {
		t.Errorf("All 8 chunks should have been processed, got %d", processor.processedCount())
	}
	if result.ChunksProcessed != 8 {
		t.Errorf("Expected 8 chunks collected, got %d", result.ChunksProcessed)
	}
}

// A processor panic counts as a failure for that chunk only.
func TestProcessorPanicIsContained(t *testing.T) {
	processor := &stubProcessor{panicIndices: map[int]bool{1: true}}
	o, _ := newTestOrchestrator(t, 2, processor)

	result := o.FilterChunks(context.Background(), makeChunks(4))

	if result.AllSucceeded {
		t.Error("Aggregate should be false when a chunk panics")
	}
	if len(result.FailedChunks) != 1 || result.FailedChunks[0] != 1 {
		t.Errorf("Expected failed chunks [1], got %v", result.FailedChunks)
	}
}

func TestEmptyChunkList(t *testing.T) {
	o, _ := newTestOrchestrator(t, 1, &stubProcessor{})

	result := o.FilterChunks(context.Background(), nil)

	if !result.AllSucceeded {
		t.Error("Empty chunk list should aggregate to true")
	}
	if result.ChunksProcessed != 0 {
		t.Errorf("Expected 0 chunks processed, got %d", result.ChunksProcessed)
	}
}

func TestSubmissionAfterPoolShutdown(t *testing.T) {
	processor := &stubProcessor{}
	o, p := newTestOrchestrator(t, 2, processor)

	p.Shutdown()

	result := o.FilterChunks(context.Background(), makeChunks(3))

	if result.AllSucceeded {
		t.Error("Rejected submissions must count as failures")
	}
	if len(result.FailedChunks) != 3 {
		t.Errorf("Expected all 3 chunks failed, got %v", result.FailedChunks)
	}
}

// retryProcessor fails a chunk a configured number of times before
// succeeding.
type retryProcessor struct {
	failuresLeft map[int]*int32
}

func (r *retryProcessor) ProcessChunk(ctx context.Context, chunk audio.Chunk) error {
	if remaining, ok := r.failuresLeft[chunk.Index]; ok {
		if atomic.AddInt32(remaining, -1) >= 0 {
			return fmt.Errorf("chunk %d transient failure", chunk.Index)
		}
	}
	return nil
}

func TestRetryFailedChunks(t *testing.T) {
	once := int32(1)
	processor := &retryProcessor{failuresLeft: map[int]*int32{1: &once}}
	o, _ := newTestOrchestrator(t, 2, processor)

	chunks := makeChunks(4)

	first := o.FilterChunks(context.Background(), chunks)
	if first.AllSucceeded {
		t.Fatal("First run should report the transient failure")
	}
	if len(first.FailedChunks) != 1 || first.FailedChunks[0] != 1 {
		t.Fatalf("Expected failed chunks [1], got %v", first.FailedChunks)
	}

	retry := o.RetryFailed(context.Background(), chunks, first.FailedChunks)
	if !retry.AllSucceeded {
		t.Error("Retry of the failed chunk should succeed")
	}
	if retry.ChunksProcessed != 1 {
		t.Errorf("Retry should only process the failed chunk, processed %d", retry.ChunksProcessed)
	}
}

func TestOrchestratorStats(t *testing.T) {
	processor := &stubProcessor{failIndices: map[int]bool{0: true}}
	o, _ := newTestOrchestrator(t, 2, processor)

	o.FilterChunks(context.Background(), makeChunks(4))

	stats := o.GetStats()
	if stats.RunsCompleted != 1 {
		t.Errorf("Expected 1 run completed, got %d", stats.RunsCompleted)
	}
	if stats.ChunksProcessed != 4 {
		t.Errorf("Expected 4 chunks processed, got %d", stats.ChunksProcessed)
	}
	if stats.ChunksFailed != 1 {
		t.Errorf("Expected 1 chunk failed, got %d", stats.ChunksFailed)
	}
}
