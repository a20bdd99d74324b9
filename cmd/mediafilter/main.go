package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/skypro1111/media-filter-pipeline/internal/audio"
	"github.com/skypro1111/media-filter-pipeline/internal/config"
	"github.com/skypro1111/media-filter-pipeline/internal/filter"
	"github.com/skypro1111/media-filter-pipeline/internal/merge"
	"github.com/skypro1111/media-filter-pipeline/internal/metrics"
	"github.com/skypro1111/media-filter-pipeline/internal/pipeline"
	"github.com/skypro1111/media-filter-pipeline/internal/pool"
	"github.com/skypro1111/media-filter-pipeline/internal/server"
)

const (
	serviceName    = "media-filter-pipeline"
	serviceVersion = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (defaults used when empty)")
	inputPath := flag.String("input", "", "Path to the input WAV file")
	outputPath := flag.String("output", "", "Path for the filtered output file")
	workers := flag.Int("workers", 0, "Worker count override (0 uses configuration)")
	keepTemp := flag.Bool("keep-temp", false, "Keep per-run chunk files for inspection")
	flag.Parse()

	if *inputPath == "" || *outputPath == "" {
		fmt.Fprintln(os.Stderr, "Both -input and -output are required")
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if *workers > 0 {
		cfg.Pool.Workers = *workers
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("input", *inputPath),
		slog.String("output", *outputPath),
		slog.Int("workers", cfg.Pool.Workers),
		slog.Float64("chunk_duration", cfg.Chunking.ChunkDuration),
		slog.String("merge_policy", cfg.Merge.Policy),
	)

	// Create cancellable context wired to shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	// Read and decode the input audio
	samples, sampleRate, err := audio.ReadWAVFile(*inputPath)
	if err != nil {
		logger.Error("Failed to read input file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if sampleRate != cfg.Audio.SampleRate {
		logger.Warn("Input sample rate differs from configuration, using input rate",
			slog.Int("config_rate", cfg.Audio.SampleRate),
			slog.Int("input_rate", sampleRate),
		)
	}

	logger.Info("Input decoded",
		slog.Int("samples", len(samples)),
		slog.Int("sample_rate", sampleRate),
		slog.Float64("duration", float64(len(samples))/float64(sampleRate)),
	)

	// Split the input into independent chunks
	splitter, err := audio.NewSplitter(audio.SplitterConfig{
		ChunkDuration: cfg.Chunking.GetChunkDuration(),
		SampleRate:    sampleRate,
		WorkDir:       cfg.Chunking.WorkDir,
	})
	if err != nil {
		logger.Error("Failed to create splitter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	chunks, err := splitter.Split(samples)
	if err != nil {
		logger.Error("Failed to split input", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := splitter.WriteChunks(samples, chunks); err != nil {
		logger.Error("Failed to write chunk files", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runDir := filepath.Dir(chunks[0].Path)
	if !*keepTemp {
		defer os.RemoveAll(runDir)
	}

	logger.Info("Input split into chunks",
		slog.Int("chunk_count", len(chunks)),
		slog.String("run_dir", runDir),
	)

	// Create the noise filter
	processor, err := filter.NewProcessor(cfg.Filter.ModelPath, cfg.Filter.Attenuation,
		cfg.Filter.WindowSize, sampleRate)
	if err != nil {
		logger.Error("Failed to create filter processor", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := processor.Initialize(); err != nil {
		logger.Error("Failed to initialize filter processor", slog.String("error", err.Error()))
		os.Exit(1)
	}

	chunkFilter := filter.NewChunkFilter(processor, logger)

	// Create the worker pool, explicitly owned here so its lifetime and
	// shutdown are deterministic
	workerPool, err := pool.New[bool](cfg.Pool.Workers)
	if err != nil {
		logger.Error("Failed to create worker pool", slog.String("error", err.Error()))
		os.Exit(1)
	}

	orchestrator, err := pipeline.NewOrchestrator(workerPool, chunkFilter, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create orchestrator", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start the monitoring HTTP server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, func() any {
			poolStats := workerPool.GetStats()
			appMetrics.PoolQueueDepth.Set(float64(poolStats.QueueDepth))
			appMetrics.PoolTasksCompleted.Set(float64(poolStats.TasksCompleted))
			appMetrics.PoolTasksPanicked.Set(float64(poolStats.TasksPanicked))

			return map[string]any{
				"pool":         poolStats,
				"orchestrator": orchestrator.GetStats(),
				"filter":       processor.GetStats(),
				"splitter":     splitter.GetStats(),
			}
		})
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Filter all chunks concurrently and aggregate the outcome
	result := orchestrator.FilterChunks(ctx, chunks)

	// Drain remaining work and join the workers before merging
	workerPool.Shutdown()

	// Merge per policy
	merged := runMerge(ctx, cfg, logger, appMetrics, chunks, result, *outputPath)

	// Stop HTTP server
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Final statistics
	poolStats := workerPool.GetStats()
	filterStats := processor.GetStats()
	logger.Info("Final pipeline statistics",
		slog.Uint64("tasks_submitted", poolStats.TasksSubmitted),
		slog.Uint64("tasks_completed", poolStats.TasksCompleted),
		slog.Uint64("tasks_panicked", poolStats.TasksPanicked),
		slog.Uint64("windows_filtered", filterStats.TotalWindows),
		slog.Float64("suppressed_percentage", filterStats.SuppressedPercentage),
		slog.Int("chunks_processed", result.ChunksProcessed),
		slog.Int("chunks_failed", len(result.FailedChunks)),
		slog.Bool("all_succeeded", result.AllSucceeded),
	)

	if !result.AllSucceeded || !merged {
		os.Exit(1)
	}

	logger.Info("Service finished", slog.String("output", *outputPath))
}

// runMerge applies the configured merge policy and reports whether an
// output file was produced.
func runMerge(ctx context.Context, cfg *config.Config, logger *slog.Logger,
	appMetrics *metrics.Metrics, chunks []audio.Chunk, result pipeline.Result, outputPath string) bool {

	var paths []string
	switch {
	case result.AllSucceeded:
		paths = merge.SuccessfulPaths(chunks, nil)
	case cfg.Merge.Policy == config.MergeBestEffort:
		paths = merge.SuccessfulPaths(chunks, result.FailedChunks)
		if len(paths) == 0 {
			logger.Error("No chunks succeeded, nothing to merge")
			return false
		}
		logger.Warn("Merging partial output",
			slog.Int("merged_chunks", len(paths)),
			slog.Int("failed_chunks", len(result.FailedChunks)),
		)
	default:
		logger.Error("Skipping merge, not all chunks succeeded",
			slog.Int("failed_chunks", len(result.FailedChunks)),
		)
		return false
	}

	merger := merge.NewFFmpegMerger(cfg.Merge.FFmpegBinary, logger)

	mergeCtx, mergeCancel := context.WithTimeout(ctx, cfg.Merge.GetTimeoutDuration())
	defer mergeCancel()

	startTime := time.Now()
	err := merger.Merge(mergeCtx, paths, outputPath)
	appMetrics.MergeDuration.Observe(time.Since(startTime).Seconds())

	if err != nil {
		appMetrics.MergesFailed.Inc()
		logger.Error("Merge failed", slog.String("error", err.Error()))
		return false
	}

	appMetrics.MergesCompleted.Inc()
	logger.Info("Merge completed",
		slog.String("output", outputPath),
		slog.Float64("duration", time.Since(startTime).Seconds()),
	)

	return true
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
