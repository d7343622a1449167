// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., the OpenAI speech
// API or a local Piper server) and returns complete PCM clips. Read-along
// playback needs the full clip up front to compute durations and highlight
// schedules, so the interface is batch rather than streaming.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when a synthesis request carries no text.
var ErrEmptyText = errors.New("tts: empty text")

// Request describes one synthesis call.
type Request struct {
	// Text is the text to speak. Must be non-empty.
	Text string

	// Voice selects the backend voice profile. Empty means the backend
	// default.
	Voice string

	// SingleWord hints that Text is an isolated word so the backend can
	// choose flatter prosody. Backends without such a control ignore it.
	SingleWord bool
}

// Clip is a synthesised utterance as 16-bit mono PCM.
type Clip struct {
	Samples    []int16
	SampleRate int
}

// Empty reports whether the clip contains no audio.
func (c Clip) Empty() bool { return len(c.Samples) == 0 }

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize converts req.Text into a PCM clip. Returns ErrEmptyText for
	// a request without text. Cancellation of ctx aborts the call.
	Synthesize(ctx context.Context, req Request) (Clip, error)

	// Voices lists the voice names this backend accepts in Request.Voice.
	Voices(ctx context.Context) ([]string, error)
}
