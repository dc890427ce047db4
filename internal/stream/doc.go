// Package stream implements live audio streaming into the recognition pipeline.
// It provides the sliding sample buffer with cross-chunk context retention and
// duplicate suppression, per-connection session handling, and session lifecycle
// management with idle eviction.
package stream
