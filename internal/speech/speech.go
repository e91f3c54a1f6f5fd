// Package speech defines the text-to-speech contract used by the document
// summary feature.
package speech

import (
	"context"
	"errors"
	"fmt"
)

// ErrSynthesis is wrapped by every synthesis failure. It never affects
// chat turn handling.
var ErrSynthesis = errors.New("speech synthesis failed")

// Audio is a complete rendered clip. Partial audio is never returned.
type Audio struct {
	Data []byte

	// Format is the container, e.g. "mp3".
	Format string
}

// ContentType returns the MIME type of the clip.
func (a Audio) ContentType() string {
	switch a.Format {
	case "mp3":
		return "audio/mpeg"
	case "opus":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	case "wav":
		return "audio/wav"
	case "pcm":
		return "audio/L16"
	default:
		return "application/octet-stream"
	}
}

// Synthesizer renders text as speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// StatusError reports a non-success HTTP status from a speech backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("speech backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("speech backend returned status %d: %s", e.StatusCode, e.Body)
}

// Unwrap makes every StatusError match ErrSynthesis.
func (e *StatusError) Unwrap() error { return ErrSynthesis }
