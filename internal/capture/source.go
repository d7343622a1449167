package capture

import (
	"context"
	"errors"
)

// ErrPermissionDenied is returned by a [Source] when microphone access is
// refused. The denial holds for the rest of the session.
var ErrPermissionDenied = errors.New("capture: microphone permission denied")

// Source opens microphone streams. The surrounding shell supplies the real
// implementation (a browser peer, a local audio device); tests supply fakes.
type Source interface {
	// Open acquires the microphone. Returns ErrPermissionDenied when access
	// is refused.
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open microphone capture stream delivering 16-bit mono PCM.
type Stream interface {
	// SampleRate reports the stream's sample rate in Hz.
	SampleRate() int

	// Read fills buf with captured samples, blocking until at least one is
	// available. Returns io.EOF after Close.
	Read(buf []int16) (int, error)

	// Close releases the microphone. Safe to call more than once.
	Close() error
}
