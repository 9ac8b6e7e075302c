package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lirrensi/loophole/internal/config"
	"github.com/lirrensi/loophole/internal/metrics"
	"github.com/lirrensi/loophole/internal/pipeline"
	"github.com/lirrensi/loophole/internal/segment"
	"github.com/lirrensi/loophole/internal/server"
	"github.com/lirrensi/loophole/internal/transcription"
	"github.com/lirrensi/loophole/internal/vad"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "loophole"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("bind_address", cfg.HTTP.Address),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Float64("chunk_duration", cfg.Audio.ChunkDuration),
		slog.Float64("vad_threshold", float64(cfg.VAD.Threshold)),
		slog.Float64("segment_silence", cfg.Segmenter.SegmentSilence),
		slog.Float64("paragraph_silence", cfg.Segmenter.ParagraphSilence),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize transcription backend
	backend, err := transcription.NewClient(transcription.ClientConfig{
		Endpoint:   cfg.Transcription.Endpoint,
		APIKey:     cfg.Transcription.APIKey,
		Timeout:    cfg.Transcription.GetTimeoutDuration(),
		MaxRetries: cfg.Transcription.MaxRetries,
		Language:   cfg.Transcription.Language,
		Model:      cfg.Transcription.Model,
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Transcription client initialized",
		slog.String("endpoint", cfg.Transcription.Endpoint),
	)

	// Initialize the streaming pipeline
	pipelineConfig := pipeline.Config{
		SampleRate:    cfg.Audio.SampleRate,
		ChunkDuration: cfg.Audio.GetChunkDuration(),
		Gate: vad.GateConfig{
			Threshold:  cfg.VAD.Threshold,
			MinSamples: cfg.VAD.MinSamples,
		},
		Segmenter: segment.Config{
			SegmentSilence:     cfg.Segmenter.SegmentSilence,
			ParagraphSilence:   cfg.Segmenter.ParagraphSilence,
			MaxSegmentDuration: cfg.Segmenter.MaxSegmentDuration,
		},
		Dispatcher: transcription.DispatcherConfig{
			QueueDepth: cfg.Transcription.QueueDepth,
			JobTimeout: cfg.Transcription.GetTimeoutDuration(),
		},
	}

	p, err := pipeline.New(pipelineConfig, vad.NewEnergyDetector(), backend, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Pipeline initialized",
		slog.Duration("chunk_duration", cfg.Audio.GetChunkDuration()),
		slog.Int("dispatch_queue_depth", cfg.Transcription.QueueDepth),
	)

	// Initialize HTTP API server
	httpServer := server.NewHTTPServer(cfg.HTTP, logger, cfg, p, appMetrics)
	logger.Info("HTTP API server initialized",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	// Start HTTP server
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Stop the pipeline (waits for in-flight transcription jobs)
	p.Stop()

	// Get final statistics
	stats := p.GetStats()
	logger.Info("Final pipeline statistics",
		slog.Uint64("chunks_emitted", stats.Accumulator.ChunksEmitted),
		slog.Uint64("segments_flushed", stats.Segmenter.SegmentsFlushed),
		slog.Uint64("jobs_submitted", stats.Dispatcher.JobsSubmitted),
		slog.Uint64("jobs_failed", stats.Dispatcher.JobsFailed),
		slog.Int("results_pending", stats.Results.Pending),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
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
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
