// Package stt defines the Provider interface for speech-to-text backends.
//
// Reading practice transcribes one short captured utterance at a time, so
// the interface is a single batch call rather than a streaming session. A
// transcription that detects no speech returns an empty Result rather than
// an error; errors mean the backend itself failed.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
)

// ErrEmptyAudio is returned when a request carries no audio data.
var ErrEmptyAudio = errors.New("stt: empty audio")

// Request is one transcription call. Audio must be a complete WAV file
// (16-bit PCM), exactly as produced by the capture layer.
type Request struct {
	Audio    []byte
	Language string // BCP-47 code; empty means backend default
}

// Result is the outcome of a transcription. Empty Text with a nil error
// means the backend heard nothing it could transcribe.
type Result struct {
	Text string
}

// Absent reports whether no speech was recognised.
func (r Result) Absent() bool { return r.Text == "" }

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts req.Audio into text. Returns ErrEmptyAudio for a
	// request without audio. Cancellation and deadlines of ctx abort the
	// call; the caller owns timeout policy.
	Transcribe(ctx context.Context, req Request) (Result, error)
}
