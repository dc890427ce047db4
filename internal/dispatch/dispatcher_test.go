package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iicchikun/ii-speech-to-text/internal/audio"
	"github.com/iicchikun/ii-speech-to-text/internal/recognition"
	"github.com/iicchikun/ii-speech-to-text/internal/segment"
)

func makeChunks(n int) []segment.Chunk {
	chunks := make([]segment.Chunk, n)
	for i := range chunks {
		chunks[i] = segment.Chunk{
			Signal: audio.Signal{Samples: make([]int16, 100), SampleRate: 16000},
			Index:  i,
			Start:  i * 100,
		}
	}
	return chunks
}

func TestDispatchOrdersResults(t *testing.T) {
	chunks := makeChunks(3)

	// Later chunks finish first; results must still come back in index order.
	recognize := func(ctx context.Context, chunk segment.Chunk) (string, error) {
		time.Sleep(time.Duration(2-chunk.Index) * 20 * time.Millisecond)
		return fmt.Sprintf("part%d", chunk.Index), nil
	}

	results := Dispatch(context.Background(), chunks, recognize, 3)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	for i, r := range results {
		if r.Index != i {
			t.Errorf("Result %d: expected index %d, got %d", i, i, r.Index)
		}
		if r.Text != fmt.Sprintf("part%d", i) {
			t.Errorf("Result %d: expected part%d, got %q", i, i, r.Text)
		}
	}

	text, err := JoinText(results)
	if err != nil {
		t.Fatalf("JoinText failed: %v", err)
	}

	if text != "part0 part1 part2" {
		t.Errorf("Expected ordered join, got %q", text)
	}
}

func TestDispatchConcurrencyBound(t *testing.T) {
	chunks := makeChunks(10)

	var inFlight, peak int64
	var mu sync.Mutex

	recognize := func(ctx context.Context, chunk segment.Chunk) (string, error) {
		current := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if current > peak {
			peak = current
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return "x", nil
	}

	Dispatch(context.Background(), chunks, recognize, 2)

	if peak > 2 {
		t.Errorf("Expected at most 2 chunks in flight, observed %d", peak)
	}
}

func TestDispatchEmptyInput(t *testing.T) {
	results := Dispatch(context.Background(), nil, func(ctx context.Context, chunk segment.Chunk) (string, error) {
		t.Error("Recognize called for empty input")
		return "", nil
	}, 4)

	if results != nil {
		t.Errorf("Expected nil results for empty input, got %d", len(results))
	}
}

func TestDispatchFailuresDoNotAbort(t *testing.T) {
	chunks := makeChunks(3)

	recognize := func(ctx context.Context, chunk segment.Chunk) (string, error) {
		if chunk.Index == 1 {
			return "", fmt.Errorf("%w: HTTP 503", recognition.ErrServiceUnavailable)
		}
		return fmt.Sprintf("part%d", chunk.Index), nil
	}

	results := Dispatch(context.Background(), chunks, recognize, 3)

	if len(results) != 3 {
		t.Fatalf("Expected all 3 results, got %d", len(results))
	}

	text, err := JoinText(results)
	if err != nil {
		t.Fatalf("JoinText failed: %v", err)
	}

	if text != "part0 part2" {
		t.Errorf("Expected failed chunk to be skipped, got %q", text)
	}
}

func TestJoinTextSkipsNoSpeech(t *testing.T) {
	results := []Result{
		{Index: 0, Text: "hallo"},
		{Index: 1, Err: recognition.ErrNoSpeech},
		{Index: 2, Text: "welt"},
	}

	text, err := JoinText(results)
	if err != nil {
		t.Fatalf("JoinText failed: %v", err)
	}

	if text != "hallo welt" {
		t.Errorf("Expected 'hallo welt', got %q", text)
	}
}

func TestJoinTextEmptyResult(t *testing.T) {
	results := []Result{
		{Index: 0, Err: recognition.ErrNoSpeech},
		{Index: 1, Err: recognition.ErrServiceUnavailable},
	}

	text, err := JoinText(results)
	if !errors.Is(err, ErrEmptyResult) {
		t.Errorf("Expected ErrEmptyResult, got %v", err)
	}

	if text != "" {
		t.Errorf("Expected empty text, got %q", text)
	}

	if _, err := JoinText(nil); !errors.Is(err, ErrEmptyResult) {
		t.Errorf("Expected ErrEmptyResult for no results, got %v", err)
	}
}
