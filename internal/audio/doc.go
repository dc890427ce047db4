// Package audio provides the core PCM signal representation and format helpers.
// It implements peak normalization with headroom, windowed RMS energy measurement,
// PCM byte conversion, and WAV encoding/decoding for mono 16-bit audio.
package audio
