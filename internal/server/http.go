package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iicchikun/ii-speech-to-text/internal/audio"
	"github.com/iicchikun/ii-speech-to-text/internal/config"
	"github.com/iicchikun/ii-speech-to-text/internal/dispatch"
	"github.com/iicchikun/ii-speech-to-text/internal/metrics"
	"github.com/iicchikun/ii-speech-to-text/internal/pipeline"
	"github.com/iicchikun/ii-speech-to-text/internal/recognition"
	"github.com/iicchikun/ii-speech-to-text/internal/segment"
	"github.com/iicchikun/ii-speech-to-text/internal/stream"
)

// HTTPServer provides the transcription API plus monitoring endpoints
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	pipeline   *pipeline.Pipeline
	recognizer recognition.Recognizer
	client     *recognition.Client
	sessions   *stream.Manager
	metrics    *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates the API server. client may be nil when the
// recognizer is not the HTTP client (no client stats are reported then).
func NewHTTPServer(cfg *config.Config, logger *slog.Logger, p *pipeline.Pipeline,
	recognizer recognition.Recognizer, client *recognition.Client,
	sessions *stream.Manager, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		config:     cfg,
		pipeline:   p,
		recognizer: recognizer,
		client:     client,
		sessions:   sessions,
		metrics:    m,
		startTime:  time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:     mux,
		ReadTimeout: 5 * time.Minute, // Uploads can be large
		IdleTimeout: 60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Transcription endpoints
	mux.HandleFunc("/transcribe", h.withMetrics("/transcribe", h.handleTranscribe))
	mux.HandleFunc("/live", h.handleLive)

	// Monitoring endpoints
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/streams", h.withMetrics("/streams", h.handleStreams))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleTranscribe implements POST /transcribe: a multipart WAV upload is
// chunked, recognized and returned as a single joined transcript.
func (h *HTTPServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.metrics.RecordUpload()

	maxBytes := int64(h.config.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		h.metrics.RecordUploadFailure()
		h.writeError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.metrics.RecordUploadFailure()
		h.writeError(w, http.StatusBadRequest, "Missing 'file' form field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.metrics.RecordUploadFailure()
		h.writeError(w, http.StatusBadRequest, "Failed to read upload: "+err.Error())
		return
	}

	sig, err := audio.DecodeWAV(data)
	if err != nil {
		h.metrics.RecordUploadFailure()
		h.writeError(w, http.StatusBadRequest, "Invalid WAV file: "+err.Error())
		return
	}

	opts, err := h.transcribeOptions(r)
	if err != nil {
		h.metrics.RecordUploadFailure()
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("Transcription upload received",
		slog.String("filename", header.Filename),
		slog.Duration("duration", sig.Duration()),
		slog.String("language", opts.Language),
		slog.String("mode", opts.Mode),
	)

	text, err := h.pipeline.Transcribe(r.Context(), sig, opts)
	if err != nil {
		h.metrics.RecordUploadFailure()
		h.writeTranscribeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"text":     text,
		"language": opts.Language,
	})
}

// transcribeOptions builds pipeline options from the configuration,
// overridden by the request's form fields.
func (h *HTTPServer) transcribeOptions(r *http.Request) (pipeline.Options, error) {
	seg := h.config.Segmentation
	win := h.config.Window

	opts := pipeline.Options{
		Language: h.config.Recognition.DefaultLanguage,
		Mode:     pipeline.ModeSilence,
		Silence: segment.SilenceOptions{
			MinSilence:  seg.GetMinSilence(),
			ThresholdDB: seg.SilenceThresholdDB,
			KeepSilence: seg.GetKeepSilence(),
			MinSegment:  seg.GetMinSegment(),
		},
		ChunkDuration:  win.GetChunkDuration(),
		Overlap:        win.GetOverlap(),
		MaxConcurrency: h.config.Recognition.MaxConcurrent,
	}

	if language := r.FormValue("language"); language != "" {
		opts.Language = language
	}

	switch mode := r.FormValue("mode"); mode {
	case "", pipeline.ModeSilence:
	case pipeline.ModeWindow:
		opts.Mode = pipeline.ModeWindow
	default:
		return pipeline.Options{}, fmt.Errorf("unknown chunking mode %q", mode)
	}

	return opts, nil
}

// writeTranscribeError maps pipeline errors to HTTP responses. An input with
// no recognizable speech is a client-side condition, not a server failure.
func (h *HTTPServer) writeTranscribeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrEmptyResult):
		h.writeError(w, http.StatusBadRequest, "No speech found in the audio file")
	case errors.Is(err, segment.ErrInvalidOverlap):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Transcription failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "Transcription failed")
	}
}

func (h *HTTPServer) writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	recognitionStatus := map[string]interface{}{
		"status": "running",
	}
	if h.client != nil {
		stats := h.client.GetStats()
		recognitionStatus["total_requests"] = stats.TotalRequests
		recognitionStatus["success_rate"] = stats.SuccessRate
		recognitionStatus["active_requests"] = stats.ActiveRequests
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "ii-speech-to-text",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"recognition": recognitionStatus,
			"live_sessions": map[string]interface{}{
				"status":       "running",
				"active_count": h.sessions.ActiveCount(),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStreams implements the /streams endpoint
func (h *HTTPServer) handleStreams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := h.sessions.Infos()

	response := map[string]interface{}{
		"total_streams": len(infos),
		"timestamp":     time.Now().UTC(),
		"streams":       infos,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Sanitized configuration: the API key is intentionally omitted
	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"port":            h.config.Server.Port,
			"address":         h.config.Server.Address,
			"max_upload_mb":   h.config.Server.MaxUploadMB,
			"session_timeout": h.config.Server.SessionTimeout,
		},
		"audio": map[string]interface{}{
			"sample_rate": h.config.Audio.SampleRate,
			"channels":    h.config.Audio.Channels,
			"bit_depth":   h.config.Audio.BitDepth,
		},
		"segmentation": map[string]interface{}{
			"min_silence_ms":       h.config.Segmentation.MinSilenceMs,
			"silence_threshold_db": h.config.Segmentation.SilenceThresholdDB,
			"keep_silence_ms":      h.config.Segmentation.KeepSilenceMs,
			"min_segment_ms":       h.config.Segmentation.MinSegmentMs,
		},
		"window": map[string]interface{}{
			"chunk_duration_ms": h.config.Window.ChunkDurationMs,
			"overlap_ms":        h.config.Window.OverlapMs,
		},
		"stream": map[string]interface{}{
			"min_process_ms":       h.config.Stream.MinProcessMs,
			"context_retention_ms": h.config.Stream.ContextRetentionMs,
		},
		"recognition": map[string]interface{}{
			"endpoint":         h.config.Recognition.Endpoint,
			"timeout":          h.config.Recognition.Timeout,
			"max_concurrent":   h.config.Recognition.MaxConcurrent,
			"default_language": h.config.Recognition.DefaultLanguage,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"streams": map[string]interface{}{
			"active_count": h.sessions.ActiveCount(),
		},
	}

	if h.client != nil {
		stats["recognition"] = h.client.GetStats()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Speech-to-Text Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"POST /transcribe": "Transcribe an uploaded WAV file",
			"GET /live":        "WebSocket endpoint for live audio streaming",
			"GET /health":      "Service health check",
			"GET /streams":     "List all active live sessions",
			"GET /config":      "Get service configuration",
			"GET /stats":       "Get service statistics",
			"GET /metrics":     "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
