package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/iicchikun/ii-speech-to-text/internal/audio"
	"github.com/iicchikun/ii-speech-to-text/internal/recognition"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSessionConfig() SessionConfig {
	return SessionConfig{
		Language: "de-DE",
		Buffer: BufferConfig{
			SampleRate:       16000,
			MinProcess:       100 * time.Millisecond, // 1600 samples
			ContextRetention: 50 * time.Millisecond,
		},
	}
}

// waitForCalls polls the mock until it has seen n recognitions.
func waitForCalls(t *testing.T, m *recognition.Mock, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Calls() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d recognitions, got %d", n, m.Calls())
}

// collectEvents drains the closed events channel.
func collectEvents(t *testing.T, session *Session) []Event {
	t.Helper()

	var events []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-session.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("Timed out draining session events")
		}
	}
}

func TestSessionEmitsTranscripts(t *testing.T) {
	mock := &recognition.Mock{
		Fn: func(ctx context.Context, sig audio.Signal, language string) (string, error) {
			if language != "de-DE" {
				t.Errorf("Expected language de-DE, got %s", language)
			}
			return fmt.Sprintf("text for %d samples", sig.Len()), nil
		},
	}

	session := NewSession(testSessionConfig(), mock, testLogger())

	session.AddBlock(make([]int16, 1600))
	waitForCalls(t, mock, 1)
	session.Close()

	events := collectEvents(t, session)

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}

	if events[0].Type != "transcript" {
		t.Errorf("Expected transcript event, got %s", events[0].Type)
	}

	if events[0].Text == "" {
		t.Error("Expected non-empty transcript text")
	}
}

func TestSessionSuppressesDuplicates(t *testing.T) {
	texts := []string{"hallo welt", "hallo welt", "noch etwas"}
	call := 0
	mock := &recognition.Mock{
		Fn: func(ctx context.Context, sig audio.Signal, language string) (string, error) {
			text := texts[call%len(texts)]
			call++
			return text, nil
		},
	}

	session := NewSession(testSessionConfig(), mock, testLogger())

	for i := 0; i < 3; i++ {
		session.AddBlock(make([]int16, 1600))
	}
	waitForCalls(t, mock, 3)
	session.Close()

	events := collectEvents(t, session)

	if len(events) != 2 {
		t.Fatalf("Expected 2 events after duplicate suppression, got %d", len(events))
	}

	if events[0].Text != "hallo welt" || events[1].Text != "noch etwas" {
		t.Errorf("Unexpected event texts: %q, %q", events[0].Text, events[1].Text)
	}

	info := session.GetSessionInfo()
	if info.EventsSuppressed != 1 {
		t.Errorf("Expected 1 suppressed event, got %d", info.EventsSuppressed)
	}
}

func TestSessionErrorHandling(t *testing.T) {
	call := 0
	mock := &recognition.Mock{
		Fn: func(ctx context.Context, sig audio.Signal, language string) (string, error) {
			call++
			switch call {
			case 1:
				return "", fmt.Errorf("%w: connection refused", recognition.ErrServiceUnavailable)
			case 2:
				return "", recognition.ErrNoSpeech
			default:
				return "danach", nil
			}
		},
	}

	session := NewSession(testSessionConfig(), mock, testLogger())

	for i := 0; i < 3; i++ {
		session.AddBlock(make([]int16, 1600))
	}
	waitForCalls(t, mock, 3)
	session.Close()

	events := collectEvents(t, session)

	// A service failure yields an error event, no speech yields nothing,
	// and the stream keeps going afterwards.
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}

	if events[0].Type != "error" {
		t.Errorf("Expected error event first, got %s", events[0].Type)
	}

	if events[1].Type != "transcript" || events[1].Text != "danach" {
		t.Errorf("Expected transcript after failure, got %+v", events[1])
	}

	info := session.GetSessionInfo()
	if info.ChunksFailed != 1 {
		t.Errorf("Expected 1 failed chunk, got %d", info.ChunksFailed)
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	session := NewSession(testSessionConfig(), &recognition.Mock{Text: "x"}, testLogger())

	session.Close()
	session.Close()

	if _, ok := <-session.Events(); ok {
		t.Error("Expected events channel to be closed")
	}
}

func TestSessionAddBlockAfterClose(t *testing.T) {
	mock := &recognition.Mock{Text: "x"}
	session := NewSession(testSessionConfig(), mock, testLogger())
	session.Close()

	session.AddBlock(make([]int16, 1600))

	if mock.Calls() != 0 {
		t.Errorf("Expected no recognitions after close, got %d", mock.Calls())
	}
}

func TestSessionDropsPendingAudioOnClose(t *testing.T) {
	mock := &recognition.Mock{Text: "x"}
	session := NewSession(testSessionConfig(), mock, testLogger())

	// 800 samples is below the 1600-sample threshold.
	session.AddBlock(make([]int16, 800))
	session.Close()

	collectEvents(t, session)

	if mock.Calls() != 0 {
		t.Errorf("Expected no recognition of sub-threshold audio, got %d calls", mock.Calls())
	}
}

func TestSessionAbortUnblocksProducer(t *testing.T) {
	call := 0
	mock := &recognition.Mock{
		Fn: func(ctx context.Context, sig audio.Signal, language string) (string, error) {
			// Distinct texts so every result becomes an event.
			call++
			return fmt.Sprintf("satz %d", call), nil
		},
	}

	session := NewSession(testSessionConfig(), mock, testLogger())

	// Nobody drains Events, as with a dead event consumer: results fill the
	// event buffer, the chunk queue backs up, and the producer wedges
	// inside AddBlock.
	produced := make(chan struct{})
	go func() {
		defer close(produced)
		for i := 0; i < 12; i++ {
			session.AddBlock(make([]int16, 1600))
		}
	}()

	select {
	case <-produced:
		t.Fatal("Expected producer to block on undrained queues")
	case <-time.After(300 * time.Millisecond):
	}

	session.Abort()

	select {
	case <-produced:
	case <-time.After(2 * time.Second):
		t.Fatal("Producer still blocked after abort")
	}

	session.Close()
	collectEvents(t, session)
}

func TestManagerRegistry(t *testing.T) {
	manager := NewManager(testLogger(), time.Minute)
	defer manager.Stop()

	session := NewSession(testSessionConfig(), &recognition.Mock{Text: "x"}, testLogger())
	defer session.Close()

	manager.Register(session)

	if manager.ActiveCount() != 1 {
		t.Errorf("Expected 1 active session, got %d", manager.ActiveCount())
	}

	infos := manager.Infos()
	if len(infos) != 1 || infos[0].ID != session.ID {
		t.Errorf("Expected session info for %s, got %+v", session.ID, infos)
	}

	manager.Remove(session.ID)

	if manager.ActiveCount() != 0 {
		t.Errorf("Expected 0 active sessions after removal, got %d", manager.ActiveCount())
	}
}
