// Package pipeline composes the transcription stages for complete
// recordings: amplitude normalization, chunking by silence or fixed
// windows, concurrent recognition and ordered text assembly.
package pipeline
