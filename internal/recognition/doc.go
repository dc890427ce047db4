// Package recognition adapts the external speech recognition service.
// It defines the Recognizer interface with a normalized error taxonomy and
// provides an HTTP client that submits WAV-encoded chunks as multipart form data.
package recognition
