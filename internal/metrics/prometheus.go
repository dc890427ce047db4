package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the speech-to-text service
type Metrics struct {
	// Upload pipeline metrics
	UploadRequests  prometheus.Counter
	UploadFailures  prometheus.Counter
	SegmentsTotal   prometheus.Counter
	ChunksGenerated prometheus.Counter
	ChunkDuration   prometheus.Histogram
	ChunkSize       prometheus.Histogram

	// Recognition metrics
	RecognitionRequests    prometheus.Counter
	RecognitionSuccesses   prometheus.Counter
	RecognitionNoSpeech    prometheus.Counter
	RecognitionUnavailable prometheus.Counter
	RecognitionDuration    prometheus.Histogram

	// Live streaming metrics
	LiveSessions         prometheus.Gauge
	LiveChunksProcessed  prometheus.Counter
	LiveEventsEmitted    prometheus.Counter
	LiveEventsSuppressed prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		UploadRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speech_upload_requests_total",
			Help: "Total number of file transcription requests",
		}),
		UploadFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speech_upload_failures_total",
			Help: "Total number of failed file transcription requests",
		}),
		SegmentsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speech_segments_total",
			Help: "Total number of speech segments produced by silence splitting",
		}),
		ChunksGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speech_chunks_generated_total",
			Help: "Total number of audio chunks sent to recognition",
		}),
		ChunkDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "speech_chunk_duration_seconds",
			Help:    "Duration of generated audio chunks",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~2 minutes
		}),
		ChunkSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "speech_chunk_size_bytes",
			Help:    "Size of generated audio chunks in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		RecognitionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speech_recognition_requests_total",
			Help: "Total number of recognition requests sent",
		}),
		RecognitionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speech_recognition_successes_total",
			Help: "Total number of recognition requests that returned text",
		}),
		RecognitionNoSpeech: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speech_recognition_no_speech_total",
			Help: "Total number of recognition requests with no speech detected",
		}),
		RecognitionUnavailable: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speech_recognition_unavailable_total",
			Help: "Total number of recognition requests that failed against the service",
		}),
		RecognitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "speech_recognition_duration_seconds",
			Help:    "Duration of recognition requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		LiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "speech_live_sessions",
			Help: "Current number of active live sessions",
		}),
		LiveChunksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speech_live_chunks_processed_total",
			Help: "Total number of live chunks sent to recognition",
		}),
		LiveEventsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speech_live_events_emitted_total",
			Help: "Total number of transcript events delivered to live clients",
		}),
		LiveEventsSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speech_live_events_suppressed_total",
			Help: "Total number of duplicate transcripts suppressed on live streams",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "speech_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "speech_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordUpload increments the upload requests counter
func (m *Metrics) RecordUpload() {
	m.UploadRequests.Inc()
}

// RecordUploadFailure increments the upload failures counter
func (m *Metrics) RecordUploadFailure() {
	m.UploadFailures.Inc()
}

// RecordSegments adds to the segments counter
func (m *Metrics) RecordSegments(count int) {
	m.SegmentsTotal.Add(float64(count))
}

// RecordChunkGenerated records a chunk handed to recognition
func (m *Metrics) RecordChunkGenerated(durationSeconds float64, sizeBytes int) {
	m.ChunksGenerated.Inc()
	m.ChunkDuration.Observe(durationSeconds)
	m.ChunkSize.Observe(float64(sizeBytes))
}

// RecordRecognitionRequest increments the recognition requests counter
func (m *Metrics) RecordRecognitionRequest() {
	m.RecognitionRequests.Inc()
}

// RecordRecognitionSuccess records a recognition request that returned text
func (m *Metrics) RecordRecognitionSuccess(durationSeconds float64) {
	m.RecognitionSuccesses.Inc()
	m.RecognitionDuration.Observe(durationSeconds)
}

// RecordRecognitionNoSpeech records a recognition request with no speech
func (m *Metrics) RecordRecognitionNoSpeech(durationSeconds float64) {
	m.RecognitionNoSpeech.Inc()
	m.RecognitionDuration.Observe(durationSeconds)
}

// RecordRecognitionUnavailable records a failed recognition request
func (m *Metrics) RecordRecognitionUnavailable(durationSeconds float64) {
	m.RecognitionUnavailable.Inc()
	m.RecognitionDuration.Observe(durationSeconds)
}

// SetLiveSessions sets the current number of live sessions
func (m *Metrics) SetLiveSessions(count int) {
	m.LiveSessions.Set(float64(count))
}

// RecordLiveSessionClosed folds a finished session's counters into the totals
func (m *Metrics) RecordLiveSessionClosed(chunks, emitted, suppressed uint64) {
	m.LiveChunksProcessed.Add(float64(chunks))
	m.LiveEventsEmitted.Add(float64(emitted))
	m.LiveEventsSuppressed.Add(float64(suppressed))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
