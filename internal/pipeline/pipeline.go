package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/iicchikun/ii-speech-to-text/internal/audio"
	"github.com/iicchikun/ii-speech-to-text/internal/dispatch"
	"github.com/iicchikun/ii-speech-to-text/internal/metrics"
	"github.com/iicchikun/ii-speech-to-text/internal/recognition"
	"github.com/iicchikun/ii-speech-to-text/internal/segment"
)

// normalizeHeadroom is the fraction of full scale left unused when
// normalizing input audio, so the loudest sample lands at about 90%.
const normalizeHeadroom = 0.1

// Chunking modes for Transcribe.
const (
	ModeSilence = "silence"
	ModeWindow  = "window"
)

// Options controls a single transcription run.
type Options struct {
	Language string

	// Mode selects the chunking strategy: ModeSilence splits on silence
	// gaps, ModeWindow slices fixed overlapping windows.
	Mode string

	Silence       segment.SilenceOptions
	ChunkDuration time.Duration
	Overlap       time.Duration

	// MaxConcurrency bounds chunks recognized in parallel. Non-positive
	// uses the hardware parallelism hint.
	MaxConcurrency int
}

// DefaultOptions returns options matching the service defaults.
func DefaultOptions() Options {
	return Options{
		Mode:          ModeSilence,
		Silence:       segment.DefaultSilenceOptions(),
		ChunkDuration: segment.DefaultChunkDuration,
		Overlap:       segment.DefaultOverlap,
	}
}

// Pipeline transcribes complete recordings: normalize, chunk, recognize
// chunks concurrently, join texts in order.
type Pipeline struct {
	recognizer recognition.Recognizer
	logger     *slog.Logger
	metrics    *metrics.Metrics
	dumpDir    string
}

// New creates a transcription pipeline. Metrics may be nil. When dumpDir is
// non-empty, every chunk is written there as a WAV file for inspection.
func New(recognizer recognition.Recognizer, logger *slog.Logger, m *metrics.Metrics, dumpDir string) *Pipeline {
	return &Pipeline{
		recognizer: recognizer,
		logger:     logger,
		metrics:    m,
		dumpDir:    dumpDir,
	}
}

// Transcribe runs the full pipeline over a decoded recording and returns the
// joined transcript. It returns dispatch.ErrEmptyResult when no chunk
// produced text, and segment.ErrInvalidOverlap for bad window options.
func (p *Pipeline) Transcribe(ctx context.Context, sig audio.Signal, opts Options) (string, error) {
	normalized := audio.Normalize(sig, normalizeHeadroom)

	chunks, err := p.makeChunks(normalized, opts)
	if err != nil {
		return "", err
	}

	if len(chunks) == 0 {
		p.logger.Info("No speech segments in input",
			slog.Duration("input_duration", sig.Duration()),
		)
		return "", dispatch.ErrEmptyResult
	}

	p.recordChunks(chunks)

	if p.dumpDir != "" {
		p.dumpChunks(chunks)
	}

	results := dispatch.Dispatch(ctx, chunks, p.recognizeChunk(opts.Language), opts.MaxConcurrency)

	for _, r := range results {
		if r.Err != nil {
			p.logger.Warn("Chunk recognition failed",
				slog.Int("chunk_index", r.Index),
				slog.String("error", r.Err.Error()),
			)
		}
	}

	text, err := dispatch.JoinText(results)
	if err != nil {
		return "", err
	}

	p.logger.Info("Transcription completed",
		slog.Duration("input_duration", sig.Duration()),
		slog.Int("chunks", len(chunks)),
		slog.Int("text_length", len(text)),
	)

	return text, nil
}

// makeChunks applies the selected chunking strategy.
func (p *Pipeline) makeChunks(sig audio.Signal, opts Options) ([]segment.Chunk, error) {
	switch opts.Mode {
	case ModeWindow:
		return segment.FixedWindows(sig, opts.ChunkDuration, opts.Overlap)
	case ModeSilence, "":
		segments := segment.SplitOnSilence(sig, opts.Silence)
		if p.metrics != nil {
			p.metrics.RecordSegments(len(segments))
		}
		return segment.FromSegments(segments), nil
	default:
		return nil, fmt.Errorf("unknown chunking mode %q", opts.Mode)
	}
}

// recognizeChunk adapts the recognizer to the dispatcher, recording
// per-chunk metrics around each call.
func (p *Pipeline) recognizeChunk(language string) dispatch.RecognizeFunc {
	return func(ctx context.Context, chunk segment.Chunk) (string, error) {
		startTime := time.Now()
		if p.metrics != nil {
			p.metrics.RecordRecognitionRequest()
		}

		text, err := p.recognizer.Recognize(ctx, chunk.Signal, language)

		if p.metrics != nil {
			elapsed := time.Since(startTime).Seconds()
			switch {
			case err == nil:
				p.metrics.RecordRecognitionSuccess(elapsed)
			case errors.Is(err, recognition.ErrNoSpeech):
				p.metrics.RecordRecognitionNoSpeech(elapsed)
			default:
				p.metrics.RecordRecognitionUnavailable(elapsed)
			}
		}

		return text, err
	}
}

func (p *Pipeline) recordChunks(chunks []segment.Chunk) {
	if p.metrics == nil {
		return
	}
	for _, chunk := range chunks {
		p.metrics.RecordChunkGenerated(
			chunk.Duration().Seconds(),
			chunk.Len()*2,
		)
	}
}

// dumpChunks writes each chunk to the dump directory as WAV. Failures are
// logged and never affect the transcription.
func (p *Pipeline) dumpChunks(chunks []segment.Chunk) {
	runID := uuid.NewString()[:8]

	if err := os.MkdirAll(p.dumpDir, 0o755); err != nil {
		p.logger.Warn("Failed to create dump directory",
			slog.String("dir", p.dumpDir),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, chunk := range chunks {
		data, err := audio.EncodeWAV(chunk.Signal)
		if err != nil {
			p.logger.Warn("Failed to encode chunk for dump",
				slog.Int("chunk_index", chunk.Index),
				slog.String("error", err.Error()),
			)
			continue
		}

		name := fmt.Sprintf("%s_chunk_%03d.wav", runID, chunk.Index)
		if err := os.WriteFile(filepath.Join(p.dumpDir, name), data, 0o644); err != nil {
			p.logger.Warn("Failed to write chunk dump",
				slog.String("file", name),
				slog.String("error", err.Error()),
			)
		}
	}
}
