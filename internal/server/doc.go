// Package server provides the HTTP API of the speech-to-text service: the
// file transcription endpoint, the WebSocket live streaming endpoint and
// monitoring endpoints for health, statistics, configuration and metrics.
package server
