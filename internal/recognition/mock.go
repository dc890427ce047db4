package recognition

import (
	"context"
	"sync"

	"github.com/iicchikun/ii-speech-to-text/internal/audio"
)

// Mock is a configurable in-memory Recognizer for tests.
type Mock struct {
	// Fn handles each call when set; otherwise Text is returned.
	Fn   func(ctx context.Context, sig audio.Signal, language string) (string, error)
	Text string

	mu    sync.Mutex
	calls int
}

// Recognize implements Recognizer.
func (m *Mock) Recognize(ctx context.Context, sig audio.Signal, language string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Fn != nil {
		return m.Fn(ctx, sig, language)
	}
	return m.Text, nil
}

// Calls returns the number of Recognize invocations.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
