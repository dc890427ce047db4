package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iicchikun/ii-speech-to-text/internal/audio"
)

func testSignal() audio.Signal {
	return audio.Signal{Samples: make([]int16, 1600), SampleRate: 16000}
}

func TestClientRecognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
		}

		if r.FormValue("language") != "de-DE" {
			t.Errorf("Expected language de-DE, got %s", r.FormValue("language"))
		}

		if r.FormValue("request_id") == "" {
			t.Error("Expected a request_id field")
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Expected a file field: %v", err)
		} else {
			file.Close()
		}

		json.NewEncoder(w).Encode(apiResponse{Text: "hallo welt", Confidence: 0.9})
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	text, err := client.Recognize(context.Background(), testSignal(), "de-DE")
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}

	if text != "hallo welt" {
		t.Errorf("Expected 'hallo welt', got %q", text)
	}

	stats := client.GetStats()
	if stats.TotalRequests != 1 || stats.SuccessRequests != 1 {
		t.Errorf("Expected 1 successful request, got %+v", stats)
	}
}

func TestClientRecognizeNoSpeech(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{Text: "   "})
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Recognize(context.Background(), testSignal(), "de-DE")
	if !errors.Is(err, ErrNoSpeech) {
		t.Errorf("Expected ErrNoSpeech for blank text, got %v", err)
	}

	stats := client.GetStats()
	if stats.NoSpeechResults != 1 {
		t.Errorf("Expected 1 no-speech result, got %+v", stats)
	}
}

func TestClientRecognizeServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Recognize(context.Background(), testSignal(), "de-DE")
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("Expected ErrServiceUnavailable for HTTP 503, got %v", err)
	}

	stats := client.GetStats()
	if stats.FailedRequests != 1 {
		t.Errorf("Expected 1 failed request, got %+v", stats)
	}
}

func TestClientRecognizeUnreachable(t *testing.T) {
	client, err := NewClient(Config{
		Endpoint: "http://127.0.0.1:1/recognize",
		Timeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Recognize(context.Background(), testSignal(), "de-DE")
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("Expected ErrServiceUnavailable for network failure, got %v", err)
	}
}

func TestClientRecognizeCancelled(t *testing.T) {
	client, err := NewClient(Config{Endpoint: "http://localhost:9000/recognize"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Recognize(ctx, testSignal(), "de-DE")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestClientCloseIdempotent(t *testing.T) {
	client, err := NewClient(Config{Endpoint: "http://localhost:9000/recognize"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.Close()
		client.Close()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Second Close call blocked")
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("Expected error for missing endpoint")
	}

	client, err := NewClient(Config{Endpoint: "http://localhost:9000/recognize"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if client.config.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", client.config.Timeout)
	}

	if cap(client.semaphore) != 10 {
		t.Errorf("Expected default concurrency 10, got %d", cap(client.semaphore))
	}
}
