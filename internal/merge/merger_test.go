package merge

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skypro1111/media-filter-pipeline/internal/audio"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildConcatArgs(t *testing.T) {
	args := buildConcatArgs("/tmp/list.txt", "/out/final.wav")

	joined := strings.Join(args, " ")
	for _, want := range []string{"-f concat", "-safe 0", "-i /tmp/list.txt", "-c copy"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Arguments missing %q: %s", want, joined)
		}
	}

	if args[len(args)-1] != "/out/final.wav" {
		t.Errorf("Destination must be the final argument, got %q", args[len(args)-1])
	}
}

func TestWriteConcatList(t *testing.T) {
	paths := []string{
		"/tmp/run/chunk_000_filtered.wav",
		"/tmp/run/chunk_001_filtered.wav",
		"/tmp/it's here/chunk_002_filtered.wav",
	}

	listPath, err := writeConcatList(paths)
	if err != nil {
		t.Fatalf("writeConcatList failed: %v", err)
	}
	defer os.Remove(listPath)

	data, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatalf("Failed to read list file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}

	if lines[0] != "file '/tmp/run/chunk_000_filtered.wav'" {
		t.Errorf("Unexpected first line: %q", lines[0])
	}

	// Single quotes must be escaped per ffmpeg concat rules
	if !strings.Contains(lines[2], `'\''`) {
		t.Errorf("Quote in path not escaped: %q", lines[2])
	}
}

func TestMergeRejectsEmptyInput(t *testing.T) {
	m := NewFFmpegMerger("ffmpeg", testLogger())

	if err := m.Merge(context.Background(), nil, "/tmp/out.wav"); err == nil {
		t.Error("Merge should fail with no chunk files")
	}
}

func TestMergeMissingBinary(t *testing.T) {
	m := NewFFmpegMerger(filepath.Join(t.TempDir(), "no-such-ffmpeg"), testLogger())

	err := m.Merge(context.Background(), []string{"/tmp/chunk_000.wav"}, "/tmp/out.wav")
	if err == nil {
		t.Fatal("Merge should fail when the binary does not exist")
	}

	stats := m.GetStats()
	if stats.MergesFailed != 1 {
		t.Errorf("Expected 1 failed merge, got %d", stats.MergesFailed)
	}
}

func TestMergeInvokesBinary(t *testing.T) {
	// "true" accepts and ignores the ffmpeg-style arguments
	m := NewFFmpegMerger("true", testLogger())

	if err := m.Merge(context.Background(), []string{"/tmp/chunk_000.wav"}, "/tmp/out.wav"); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	stats := m.GetStats()
	if stats.MergesCompleted != 1 {
		t.Errorf("Expected 1 completed merge, got %d", stats.MergesCompleted)
	}
}

func TestMergeCancelledContext(t *testing.T) {
	m := NewFFmpegMerger("true", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Merge(ctx, []string{"/tmp/chunk_000.wav"}, "/tmp/out.wav"); err == nil {
		t.Error("Merge should fail once the context is cancelled")
	}
}

func TestSuccessfulPaths(t *testing.T) {
	chunks := []audio.Chunk{
		{Index: 2, FilteredPath: "/run/chunk_002_filtered.wav"},
		{Index: 0, FilteredPath: "/run/chunk_000_filtered.wav"},
		{Index: 1, FilteredPath: "/run/chunk_001_filtered.wav"},
		{Index: 3, FilteredPath: "/run/chunk_003_filtered.wav"},
	}

	t.Run("no failures returns all in index order", func(t *testing.T) {
		paths := SuccessfulPaths(chunks, nil)

		if len(paths) != 4 {
			t.Fatalf("Expected 4 paths, got %d", len(paths))
		}
		for i, path := range paths {
			if !strings.Contains(path, "chunk_00"+string(rune('0'+i))) {
				t.Errorf("Path %d out of order: %q", i, path)
			}
		}
	})

	t.Run("failed chunks are skipped", func(t *testing.T) {
		paths := SuccessfulPaths(chunks, []int{1, 3})

		want := []string{"/run/chunk_000_filtered.wav", "/run/chunk_002_filtered.wav"}
		if len(paths) != len(want) {
			t.Fatalf("Expected %d paths, got %d", len(want), len(paths))
		}
		for i := range want {
			if paths[i] != want[i] {
				t.Errorf("Path %d: expected %q, got %q", i, want[i], paths[i])
			}
		}
	})

	t.Run("all failed returns empty", func(t *testing.T) {
		if paths := SuccessfulPaths(chunks, []int{0, 1, 2, 3}); len(paths) != 0 {
			t.Errorf("Expected no paths, got %v", paths)
		}
	})
}
