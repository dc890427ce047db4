// Package dispatch runs chunk recognition over a bounded worker pool.
// It collects per-chunk results in source order, tolerates individual chunk
// failure, and joins the surviving texts into the final transcript.
package dispatch
