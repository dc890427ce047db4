package segment

import (
	"errors"
	"testing"
	"time"

	"github.com/iicchikun/ii-speech-to-text/internal/audio"
)

func TestFixedWindows(t *testing.T) {
	// 70 seconds at 1 kHz: windows [0,30s), [28s,58s), [56s,70s).
	sig := audio.Signal{Samples: make([]int16, 70000), SampleRate: 1000}

	chunks, err := FixedWindows(sig, 30*time.Second, 2*time.Second)
	if err != nil {
		t.Fatalf("FixedWindows failed: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}

	expected := []struct {
		start int
		size  int
	}{
		{0, 30000},
		{28000, 30000},
		{56000, 14000},
	}

	for i, want := range expected {
		if chunks[i].Index != i {
			t.Errorf("Chunk %d: expected index %d, got %d", i, i, chunks[i].Index)
		}
		if chunks[i].Start != want.start {
			t.Errorf("Chunk %d: expected start %d, got %d", i, want.start, chunks[i].Start)
		}
		if chunks[i].Len() != want.size {
			t.Errorf("Chunk %d: expected %d samples, got %d", i, want.size, chunks[i].Len())
		}
	}
}

func TestFixedWindowsCoverage(t *testing.T) {
	sig := audio.Signal{Samples: make([]int16, 100000), SampleRate: 1000}

	chunks, err := FixedWindows(sig, 30*time.Second, 2*time.Second)
	if err != nil {
		t.Fatalf("FixedWindows failed: %v", err)
	}

	prevStart := -1
	covered := 0

	for i, chunk := range chunks {
		if chunk.Start <= prevStart {
			t.Errorf("Chunk %d start %d not strictly increasing", i, chunk.Start)
		}
		if chunk.Start > covered {
			t.Errorf("Gap before chunk %d: start %d, covered up to %d", i, chunk.Start, covered)
		}
		if end := chunk.Start + chunk.Len(); end > covered {
			covered = end
		}
		prevStart = chunk.Start
	}

	if covered != sig.Len() {
		t.Errorf("Expected full coverage of %d samples, covered %d", sig.Len(), covered)
	}
}

func TestFixedWindowsShortInput(t *testing.T) {
	sig := audio.Signal{Samples: make([]int16, 10000), SampleRate: 1000}

	chunks, err := FixedWindows(sig, 30*time.Second, 2*time.Second)
	if err != nil {
		t.Fatalf("FixedWindows failed: %v", err)
	}

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk for short input, got %d", len(chunks))
	}

	if chunks[0].Len() != 10000 {
		t.Errorf("Expected truncated chunk of 10000 samples, got %d", chunks[0].Len())
	}
}

func TestFixedWindowsEmptyInput(t *testing.T) {
	chunks, err := FixedWindows(audio.Signal{SampleRate: 1000}, 30*time.Second, 2*time.Second)
	if err != nil {
		t.Fatalf("FixedWindows failed: %v", err)
	}

	if len(chunks) != 0 {
		t.Errorf("Expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestFixedWindowsInvalidOverlap(t *testing.T) {
	sig := audio.Signal{Samples: make([]int16, 1000), SampleRate: 1000}

	_, err := FixedWindows(sig, 30*time.Second, 30*time.Second)
	if !errors.Is(err, ErrInvalidOverlap) {
		t.Errorf("Expected ErrInvalidOverlap for overlap == duration, got %v", err)
	}

	_, err = FixedWindows(sig, 30*time.Second, 40*time.Second)
	if !errors.Is(err, ErrInvalidOverlap) {
		t.Errorf("Expected ErrInvalidOverlap for overlap > duration, got %v", err)
	}

	if _, err := FixedWindows(sig, 0, 0); err == nil {
		t.Error("Expected error for zero chunk duration")
	}

	if _, err := FixedWindows(sig, 30*time.Second, -time.Second); err == nil {
		t.Error("Expected error for negative overlap")
	}
}

func TestFromSegments(t *testing.T) {
	sig := audio.Signal{Samples: make([]int16, 10000), SampleRate: 1000}

	segments := []Segment{
		{Signal: sig.Slice(0, 3000), Start: 0},
		{Signal: sig.Slice(5000, 9000), Start: 5000},
	}

	chunks := FromSegments(segments)

	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("Chunk %d: expected index %d, got %d", i, i, chunk.Index)
		}
		if chunk.Start != segments[i].Start {
			t.Errorf("Chunk %d: expected start %d, got %d", i, segments[i].Start, chunk.Start)
		}
		if chunk.Len() != segments[i].Len() {
			t.Errorf("Chunk %d: expected %d samples, got %d", i, segments[i].Len(), chunk.Len())
		}
	}
}
