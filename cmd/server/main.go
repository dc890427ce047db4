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

	"github.com/iicchikun/ii-speech-to-text/internal/config"
	"github.com/iicchikun/ii-speech-to-text/internal/metrics"
	"github.com/iicchikun/ii-speech-to-text/internal/pipeline"
	"github.com/iicchikun/ii-speech-to-text/internal/recognition"
	"github.com/iicchikun/ii-speech-to-text/internal/server"
	"github.com/iicchikun/ii-speech-to-text/internal/stream"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "ii-speech-to-text"
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

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("address", cfg.Server.Address),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("min_silence_ms", cfg.Segmentation.MinSilenceMs),
		slog.Float64("silence_threshold_db", cfg.Segmentation.SilenceThresholdDB),
		slog.Int("chunk_duration_ms", cfg.Window.ChunkDurationMs),
		slog.Int("overlap_ms", cfg.Window.OverlapMs),
		slog.String("recognition_endpoint", cfg.Recognition.Endpoint),
		slog.String("default_language", cfg.Recognition.DefaultLanguage),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize recognition client
	client, err := recognition.NewClient(recognition.Config{
		Endpoint:      cfg.Recognition.Endpoint,
		APIKey:        cfg.Recognition.APIKey,
		Timeout:       cfg.Recognition.GetTimeout(),
		MaxConcurrent: cfg.Recognition.MaxConcurrent,
	})
	if err != nil {
		logger.Error("Failed to create recognition client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Recognition client initialized",
		slog.String("endpoint", cfg.Recognition.Endpoint),
		slog.Int("max_concurrent", cfg.Recognition.MaxConcurrent),
	)

	// Initialize transcription pipeline
	p := pipeline.New(client, logger, appMetrics, cfg.Debug.DumpDir)

	// Initialize live session manager
	sessions := stream.NewManager(logger, cfg.Server.GetSessionTimeout())
	logger.Info("Session manager initialized",
		slog.Duration("session_timeout", cfg.Server.GetSessionTimeout()),
	)

	// Initialize and start the HTTP API server
	httpServer := server.NewHTTPServer(cfg, logger, p, client, client, sessions, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)),
	)

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Stop live session manager (closes remaining session transports)
	sessions.Stop()

	// Wait for in-flight recognition requests
	if err := client.Close(); err != nil {
		logger.Error("Error closing recognition client", slog.String("error", err.Error()))
	}

	stats := client.GetStats()
	logger.Info("Final recognition statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("success_requests", stats.SuccessRequests),
		slog.Uint64("no_speech_results", stats.NoSpeechResults),
		slog.Uint64("failed_requests", stats.FailedRequests),
	)

	logger.Info("Service stopped")
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
		// Assume it's a file path
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
