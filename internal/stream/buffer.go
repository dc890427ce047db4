package stream

import (
	"sync"
	"time"

	"github.com/iicchikun/ii-speech-to-text/internal/audio"
	"github.com/iicchikun/ii-speech-to-text/internal/segment"
)

// Default stream buffer thresholds.
const (
	DefaultMinProcess       = 5 * time.Second
	DefaultContextRetention = 2500 * time.Millisecond
)

// BufferConfig contains sliding stream buffer configuration.
type BufferConfig struct {
	SampleRate int

	// MinProcess is the amount of buffered audio required before a chunk
	// is emitted for recognition.
	MinProcess time.Duration

	// ContextRetention is the trailing window retained after emitting a
	// chunk, giving the next chunk acoustic context across the boundary.
	ContextRetention time.Duration
}

// Buffer accumulates live PCM sample blocks for one stream and emits
// recognition chunks once enough audio has arrived. After each emission it
// keeps a trailing window of samples as context for the next chunk, and it
// suppresses consecutive duplicate recognition results that the retained
// overlap tends to produce.
//
// A Buffer serves exactly one logical stream: blocks must be added in
// arrival order by a single producer. Audio still below the emission
// threshold when the stream closes is dropped; there is no flush-on-close.
type Buffer struct {
	sampleRate        int
	minProcessSamples int
	retainSamples     int

	pending         []int16
	carried         int // Retained-context samples at the head of pending
	nextIndex       int
	lastEmittedText string

	mu sync.Mutex
}

// NewBuffer creates a sliding stream buffer. Zero thresholds fall back to
// the defaults.
func NewBuffer(config BufferConfig) *Buffer {
	minProcess := config.MinProcess
	if minProcess <= 0 {
		minProcess = DefaultMinProcess
	}

	retention := config.ContextRetention
	if retention <= 0 {
		retention = DefaultContextRetention
	}

	return &Buffer{
		sampleRate:        config.SampleRate,
		minProcessSamples: audio.DurationToSamples(minProcess, config.SampleRate),
		retainSamples:     audio.DurationToSamples(retention, config.SampleRate),
	}
}

// AddSamples appends a block to the pending buffer. Once the buffer holds at
// least the minimum amount of audio to process, the full pending content is
// returned as a chunk and only the trailing context window is retained (the
// whole buffer, if shorter). The returned chunk owns its samples; Start is
// the number of leading samples that are retained context from the previous
// chunk. The second return value reports whether a chunk was emitted.
func (b *Buffer) AddSamples(block []int16) (segment.Chunk, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, block...)

	if len(b.pending) < b.minProcessSamples {
		return segment.Chunk{}, false
	}

	samples := make([]int16, len(b.pending))
	copy(samples, b.pending)

	chunk := segment.Chunk{
		Signal: audio.Signal{Samples: samples, SampleRate: b.sampleRate},
		Index:  b.nextIndex,
		Start:  b.carried,
	}
	b.nextIndex++

	if len(b.pending) > b.retainSamples {
		tail := make([]int16, b.retainSamples)
		copy(tail, b.pending[len(b.pending)-b.retainSamples:])
		b.pending = tail
	}
	b.carried = len(b.pending)

	return chunk, true
}

// Len returns the number of pending samples.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// ShouldEmit reports whether a freshly recognized text should be emitted.
// It returns true only for non-empty text that differs from the most
// recently emitted text, and records the text when it does. Retained context
// frequently makes the recognizer repeat the previous phrase verbatim; this
// is the guard against emitting it twice.
func (b *Buffer) ShouldEmit(text string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if text == "" || text == b.lastEmittedText {
		return false
	}

	b.lastEmittedText = text
	return true
}

// LastEmittedText returns the most recently emitted transcript.
func (b *Buffer) LastEmittedText() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastEmittedText
}
