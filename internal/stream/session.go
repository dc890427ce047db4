package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iicchikun/ii-speech-to-text/internal/recognition"
	"github.com/iicchikun/ii-speech-to-text/internal/segment"
)

// chunkQueueSize bounds chunks waiting for recognition per session. The
// buffer keeps accumulating while earlier chunks are recognized; a full
// queue applies backpressure to the transport read loop.
const chunkQueueSize = 4

// Event is a discrete output of a live session: either a recognized phrase
// or a per-chunk error indicator. A single recognition failure produces an
// error event; it never tears the stream down.
type Event struct {
	Type       string `json:"type"` // "transcript" or "error"
	Text       string `json:"text,omitempty"`
	ChunkIndex int    `json:"chunk_index"`
	Error      string `json:"error,omitempty"`
}

// SessionConfig contains live session configuration.
type SessionConfig struct {
	Language string
	Buffer   BufferConfig
}

// Session owns the sliding buffer for one live connection. The transport
// read loop feeds AddBlock in strict arrival order; a single worker
// goroutine recognizes emitted chunks one at a time, so duplicate
// suppression always sees the most recent completed result. The session is
// destroyed on disconnect; any recognition still in flight completes and is
// discarded.
type Session struct {
	ID        string
	StartTime time.Time

	language   string
	buffer     *Buffer
	recognizer recognition.Recognizer
	logger     *slog.Logger

	chunks chan segment.Chunk
	events chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce      sync.Once
	transportClose func() error

	// Activity and statistics
	lastActivity     time.Time
	chunksProduced   uint64
	eventsEmitted    uint64
	eventsSuppressed uint64
	chunksFailed     uint64
	closed           bool

	mu sync.RWMutex
}

// SessionInfo represents session state for monitoring.
type SessionInfo struct {
	ID               string        `json:"id"`
	StartTime        time.Time     `json:"start_time"`
	LastActivity     time.Time     `json:"last_activity"`
	Duration         time.Duration `json:"duration"`
	BufferedSamples  int           `json:"buffered_samples"`
	ChunksProduced   uint64        `json:"chunks_produced"`
	EventsEmitted    uint64        `json:"events_emitted"`
	EventsSuppressed uint64        `json:"events_suppressed"`
	ChunksFailed     uint64        `json:"chunks_failed"`
}

// NewSession creates a live session and starts its recognition worker.
func NewSession(config SessionConfig, recognizer recognition.Recognizer, logger *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	now := time.Now()
	s := &Session{
		ID:           uuid.NewString(),
		StartTime:    now,
		language:     config.Language,
		buffer:       NewBuffer(config.Buffer),
		recognizer:   recognizer,
		logger:       logger,
		chunks:       make(chan segment.Chunk, chunkQueueSize),
		events:       make(chan Event, chunkQueueSize),
		ctx:          ctx,
		cancel:       cancel,
		lastActivity: now,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.recognitionLoop()
	}()

	return s
}

// AddBlock feeds a block of samples into the session's buffer. Must be
// called from a single goroutine in arrival order. When the buffer emits a
// chunk, it is queued for recognition; a full queue blocks until the worker
// catches up or the session closes.
func (s *Session) AddBlock(block []int16) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.lastActivity = time.Now()
	s.mu.Unlock()

	chunk, ok := s.buffer.AddSamples(block)
	if !ok {
		return
	}

	s.mu.Lock()
	s.chunksProduced++
	s.mu.Unlock()

	select {
	case s.chunks <- chunk:
	case <-s.ctx.Done():
	}
}

// Events returns the session's output stream. The channel is closed when
// the session closes.
func (s *Session) Events() <-chan Event {
	return s.events
}

// LastActivity returns the time of the last incoming block.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// SetTransportCloser registers a function that closes the underlying
// transport, used to evict idle sessions.
func (s *Session) SetTransportCloser(fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transportClose = fn
}

// CloseTransport closes the underlying transport, if one was registered.
func (s *Session) CloseTransport() {
	s.mu.RLock()
	fn := s.transportClose
	s.mu.RUnlock()

	if fn != nil {
		if err := fn(); err != nil {
			s.logger.Debug("Transport close failed",
				slog.String("session_id", s.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Abort cancels the session's processing without waiting for it to stop.
// Any AddBlock or event delivery blocked on a full queue unwinds, so the
// transport read loop can reach its error path and call Close. Used when
// the event consumer dies and can no longer drain the session.
func (s *Session) Abort() {
	s.cancel()
}

// Close stops the session and discards buffered state. Pending audio below
// the emission threshold is dropped. Safe to call more than once, but must
// not race with AddBlock: the transport read loop has to stop first.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		close(s.chunks)
		s.wg.Wait()
		close(s.events)
	})
}

// GetSessionInfo returns session state for monitoring.
func (s *Session) GetSessionInfo() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SessionInfo{
		ID:               s.ID,
		StartTime:        s.StartTime,
		LastActivity:     s.lastActivity,
		Duration:         time.Since(s.StartTime),
		BufferedSamples:  s.buffer.Len(),
		ChunksProduced:   s.chunksProduced,
		EventsEmitted:    s.eventsEmitted,
		EventsSuppressed: s.eventsSuppressed,
		ChunksFailed:     s.chunksFailed,
	}
}

// recognitionLoop processes queued chunks one at a time. Serializing
// recognition per session keeps the duplicate-suppression state in step
// with the most recent completed result.
func (s *Session) recognitionLoop() {
	for {
		var chunk segment.Chunk
		var ok bool

		select {
		case <-s.ctx.Done():
			return
		case chunk, ok = <-s.chunks:
			if !ok {
				return
			}
		}

		text, err := s.recognizer.Recognize(s.ctx, chunk.Signal, s.language)
		if err != nil {
			s.handleChunkError(chunk, err)
			continue
		}

		if !s.buffer.ShouldEmit(text) {
			s.mu.Lock()
			s.eventsSuppressed++
			s.mu.Unlock()

			s.logger.Debug("Duplicate transcript suppressed",
				slog.String("session_id", s.ID),
				slog.Int("chunk_index", chunk.Index),
			)
			continue
		}

		s.mu.Lock()
		s.eventsEmitted++
		s.mu.Unlock()

		s.emit(Event{
			Type:       "transcript",
			Text:       text,
			ChunkIndex: chunk.Index,
		})
	}
}

// handleChunkError absorbs a failed chunk. No speech is not a failure and
// produces no event; a service failure is reported to the client as an
// error event and the stream continues.
func (s *Session) handleChunkError(chunk segment.Chunk, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}

	if errors.Is(err, recognition.ErrNoSpeech) {
		s.logger.Debug("No speech in live chunk",
			slog.String("session_id", s.ID),
			slog.Int("chunk_index", chunk.Index),
		)
		return
	}

	s.mu.Lock()
	s.chunksFailed++
	s.mu.Unlock()

	s.logger.Warn("Live chunk recognition failed",
		slog.String("session_id", s.ID),
		slog.Int("chunk_index", chunk.Index),
		slog.String("error", err.Error()),
	)

	s.emit(Event{
		Type:       "error",
		ChunkIndex: chunk.Index,
		Error:      "recognition unavailable",
	})
}

// emit delivers an event, preferring the buffered channel so results
// completing during shutdown are still handed over when there is room.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
		return
	default:
	}

	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}
