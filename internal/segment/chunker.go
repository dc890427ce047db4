package segment

import (
	"errors"
	"fmt"
	"time"

	"github.com/iicchikun/ii-speech-to-text/internal/audio"
)

// Default fixed-window parameters.
const (
	DefaultChunkDuration = 30 * time.Second
	DefaultOverlap       = 2 * time.Second
)

// ErrInvalidOverlap reports a window configuration where the overlap does
// not leave room for the window to advance.
var ErrInvalidOverlap = errors.New("overlap must be shorter than chunk duration")

// Chunk is a fixed-duration slice of a parent signal, ready for dispatch.
// Index orders chunks by their position in the source; Start is the offset
// of the chunk in the parent, in samples.
type Chunk struct {
	audio.Signal
	Index int
	Start int
}

// FixedWindows splits a signal into overlapping fixed-duration windows.
// Windows advance by chunkDuration-overlap per step and the final window is
// truncated at the signal's end rather than padded. Speech spanning a window
// boundary may appear in two chunks; downstream joining does not de-duplicate
// the overlap region, so repeated words at joins are a known limitation of
// this mode.
func FixedWindows(sig audio.Signal, chunkDuration, overlap time.Duration) ([]Chunk, error) {
	if chunkDuration <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %v", chunkDuration)
	}

	if overlap < 0 {
		return nil, fmt.Errorf("overlap cannot be negative, got %v", overlap)
	}

	if overlap >= chunkDuration {
		return nil, fmt.Errorf("%w: overlap %v >= duration %v", ErrInvalidOverlap, overlap, chunkDuration)
	}

	windowSamples := audio.DurationToSamples(chunkDuration, sig.SampleRate)
	stepSamples := audio.DurationToSamples(chunkDuration-overlap, sig.SampleRate)
	if stepSamples < 1 {
		stepSamples = 1
	}

	var chunks []Chunk
	for i := 0; ; i++ {
		start := i * stepSamples
		if start >= sig.Len() {
			break
		}

		end := start + windowSamples
		if end > sig.Len() {
			end = sig.Len()
		}

		chunks = append(chunks, Chunk{
			Signal: sig.Slice(start, end),
			Index:  i,
			Start:  start,
		})

		if end >= sig.Len() {
			break
		}
	}

	return chunks, nil
}

// FromSegments converts silence-derived segments into an indexed chunk
// sequence for dispatch.
func FromSegments(segments []Segment) []Chunk {
	chunks := make([]Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = Chunk{
			Signal: seg.Signal,
			Index:  i,
			Start:  seg.Start,
		}
	}
	return chunks
}
