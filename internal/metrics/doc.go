// Package metrics provides Prometheus metrics for the speech-to-text service,
// covering the upload pipeline, the recognition client, live streaming
// sessions and the HTTP API.
package metrics
