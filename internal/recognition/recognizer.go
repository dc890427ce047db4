package recognition

import (
	"context"
	"errors"

	"github.com/iicchikun/ii-speech-to-text/internal/audio"
)

// ErrNoSpeech reports that a chunk contained no recognizable speech.
// It is an expected, frequent outcome and is never surfaced to the end user
// as a failure; the chunk simply yields no text.
var ErrNoSpeech = errors.New("no speech detected")

// ErrServiceUnavailable reports that the recognition service could not be
// reached or returned a transient failure. The affected chunk is skipped and
// processing continues.
var ErrServiceUnavailable = errors.New("recognition service unavailable")

// Recognizer converts a speech signal into text.
type Recognizer interface {
	// Recognize transcribes the signal in the given language (a BCP-47
	// tag). It returns the recognized text, ErrNoSpeech when the signal
	// contains no recognizable speech, or ErrServiceUnavailable on a
	// transient service failure. Implementations do not retry; retry
	// policy belongs to the caller.
	Recognize(ctx context.Context, sig audio.Signal, language string) (string, error)
}
