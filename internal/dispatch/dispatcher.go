package dispatch

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/iicchikun/ii-speech-to-text/internal/segment"
)

// ErrEmptyResult reports that every chunk in a batch failed or contained no
// speech. It is surfaced to the caller as an explicit "no speech found"
// outcome, distinct from a processing failure.
var ErrEmptyResult = errors.New("no speech found in any chunk")

// RecognizeFunc transcribes a single chunk.
type RecognizeFunc func(ctx context.Context, chunk segment.Chunk) (string, error)

// Result is the outcome of recognizing one chunk. Err carries ErrNoSpeech or
// ErrServiceUnavailable for skipped chunks; such results are excluded from
// the joined text but kept for diagnostics.
type Result struct {
	Index int
	Text  string
	Err   error
}

// Dispatch runs recognize over a batch of independent chunks with at most
// maxConcurrency chunks in flight. A non-positive maxConcurrency defaults to
// the hardware parallelism hint, and the pool is never larger than the chunk
// count. Each worker owns its chunk exclusively; individual failures never
// abort the batch. Results are returned ordered by chunk index regardless of
// completion order.
func Dispatch(ctx context.Context, chunks []segment.Chunk, recognize RecognizeFunc, maxConcurrency int) []Result {
	if len(chunks) == 0 {
		return nil
	}

	workers := maxConcurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(chunks) {
		workers = len(chunks)
	}

	jobs := make(chan segment.Chunk)
	results := make([]Result, 0, len(chunks))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range jobs {
				text, err := recognize(ctx, chunk)

				mu.Lock()
				results = append(results, Result{
					Index: chunk.Index,
					Text:  text,
					Err:   err,
				})
				mu.Unlock()
			}
		}()
	}

	for _, chunk := range chunks {
		jobs <- chunk
	}
	close(jobs)

	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})

	return results
}

// JoinText joins successful chunk texts with a single space, in index order.
// Failed or empty chunks are omitted. When no chunk produced text, the joined
// result is empty and ErrEmptyResult is returned.
func JoinText(results []Result) (string, error) {
	var parts []string
	for _, r := range results {
		if r.Err != nil || r.Text == "" {
			continue
		}
		parts = append(parts, r.Text)
	}

	if len(parts) == 0 {
		return "", ErrEmptyResult
	}

	return strings.Join(parts, " "), nil
}
