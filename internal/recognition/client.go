package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iicchikun/ii-speech-to-text/internal/audio"
)

// Config contains recognition client configuration.
type Config struct {
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	MaxConcurrent int
}

// Client submits audio chunks to an external recognition HTTP endpoint.
// Chunks are sent WAV-encoded as multipart form data; outcomes are
// normalized to the package's error taxonomy. The client performs no
// retries.
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{} // Bounds in-flight requests
	closeOnce  sync.Once

	// Statistics
	totalRequests   uint64
	successRequests uint64
	noSpeechResults uint64
	failedRequests  uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// apiResponse is the JSON body returned by the recognition endpoint.
type apiResponse struct {
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence,omitempty"`
	Language   string  `json:"language,omitempty"`
}

// ClientStats represents client statistics.
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	NoSpeechResults uint64        `json:"no_speech_results"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

// NewClient creates a new recognition HTTP client.
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Recognize sends a signal for recognition and normalizes the outcome.
// Network failures and non-2xx responses map to ErrServiceUnavailable; a
// successful response carrying no text maps to ErrNoSpeech.
func (c *Client) Recognize(ctx context.Context, sig audio.Signal, language string) (string, error) {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	startTime := time.Now()
	c.incrementTotalRequests()

	body, contentType, err := c.createMultipartRequest(sig, language)
	if err != nil {
		c.incrementFailedRequests()
		return "", fmt.Errorf("failed to create multipart request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		c.incrementFailedRequests()
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "ii-speech-to-text/1.0")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.incrementFailedRequests()
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.incrementFailedRequests()
		return "", fmt.Errorf("%w: failed to read response body: %v", ErrServiceUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.incrementFailedRequests()
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrServiceUnavailable, resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		c.incrementFailedRequests()
		return "", fmt.Errorf("%w: failed to parse response JSON: %v", ErrServiceUnavailable, err)
	}

	text := strings.TrimSpace(apiResp.Text)
	if text == "" {
		c.incrementNoSpeechResults()
		return "", ErrNoSpeech
	}

	c.recordSuccess(time.Since(startTime))
	return text, nil
}

// createMultipartRequest builds the multipart/form-data body carrying the
// WAV-encoded chunk and its recognition parameters.
func (c *Client) createMultipartRequest(sig audio.Signal, language string) (io.Reader, string, error) {
	wavData, err := audio.EncodeWAV(sig)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode chunk: %w", err)
	}

	requestID := uuid.NewString()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", requestID+".wav")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := fileWriter.Write(wavData); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"request_id":  requestID,
		"language":    language,
		"sample_rate": fmt.Sprintf("%d", sig.SampleRate),
		"duration":    fmt.Sprintf("%.3f", sig.Duration().Seconds()),
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) incrementNoSpeechResults() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.noSpeechResults++
}

func (c *Client) recordSuccess(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.successRequests++

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics.
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		NoSpeechResults: c.noSpeechResults,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  len(c.semaphore),
	}
}

// Close waits for all active requests to complete. Safe to call more than
// once; only the first call waits.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		for i := 0; i < c.config.MaxConcurrent; i++ {
			c.semaphore <- struct{}{}
		}
	})

	return nil
}
