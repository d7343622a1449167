// Package capture records the learner's spoken attempt during a reading turn.
//
// The Recorder wraps a microphone Source. Start acquires the stream and
// buffers samples in the background; Stop waits a short tail so the last word
// is not clipped, releases the microphone and returns the buffered audio as a
// WAV payload. At most one recording is active at a time.
package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/readalong/readalong/pkg/audioproc"
)

// DefaultStopTail is how long Stop keeps capturing after it is called, so a
// learner who releases the button mid-word still gets their last syllable.
const DefaultStopTail = 750 * time.Millisecond

// Recording is one captured utterance.
type Recording struct {
	Samples    []int16
	SampleRate int
}

// WAV returns the recording as a 16-bit mono WAV payload.
func (r *Recording) WAV() []byte {
	return audioproc.EncodeWAV(r.Samples, r.SampleRate)
}

// Base64 returns the WAV payload base64-encoded for transport.
func (r *Recording) Base64() string {
	return base64.StdEncoding.EncodeToString(r.WAV())
}

// Duration reports the captured audio length.
func (r *Recording) Duration() time.Duration {
	return audioproc.Duration(r.Samples, r.SampleRate)
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithStopTail overrides the trailing capture window applied by Stop.
func WithStopTail(d time.Duration) Option {
	return func(r *Recorder) { r.tail = d }
}

// Recorder buffers microphone audio between Start and Stop.
//
// Recorder is safe for concurrent use.
type Recorder struct {
	source Source
	tail   time.Duration
	log    *slog.Logger

	mu         sync.Mutex
	stream     Stream
	rate       int
	buf        []int16
	denied     bool
	stopping   bool
	readerDone chan struct{}
}

// New creates a Recorder capturing from source.
func New(source Source, opts ...Option) *Recorder {
	r := &Recorder{
		source: source,
		tail:   DefaultStopTail,
		log:    slog.Default().With("component", "capture"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start acquires the microphone and begins buffering. Calling Start while a
// recording is active is a no-op. On permission denial the recorder remembers
// the refusal (see [Recorder.PermissionDenied]) and stays idle.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return nil
	}

	stream, err := r.source.Open(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			r.denied = true
			r.log.Warn("microphone permission denied")
		}
		return err
	}

	r.stream = stream
	r.rate = stream.SampleRate()
	r.buf = r.buf[:0]
	r.readerDone = make(chan struct{})
	go r.readLoop(stream, r.readerDone)
	return nil
}

// readLoop drains the stream into the buffer until the stream closes.
func (r *Recorder) readLoop(stream Stream, done chan<- struct{}) {
	defer close(done)
	chunk := make([]int16, 1024)
	for {
		n, err := stream.Read(chunk)
		if n > 0 {
			r.mu.Lock()
			r.buf = append(r.buf, chunk[:n]...)
			r.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Stop finishes the active recording and returns it. When no recording is
// active, Stop returns (nil, nil). The configured tail elapses before the
// stream is released, unless ctx is cancelled first. When Stop races with
// itself only one caller gets the recording; the others see (nil, nil).
func (r *Recorder) Stop(ctx context.Context) (*Recording, error) {
	r.mu.Lock()
	if r.stream == nil || r.stopping {
		r.mu.Unlock()
		return nil, nil
	}
	r.stopping = true
	stream, done := r.stream, r.readerDone
	r.mu.Unlock()

	if r.tail > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(r.tail):
		}
	}

	if err := stream.Close(); err != nil {
		r.log.Warn("closing capture stream", "error", err)
	}
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	rec := &Recording{
		Samples:    append([]int16(nil), r.buf...),
		SampleRate: r.rate,
	}
	r.stream = nil
	r.readerDone = nil
	r.buf = nil
	r.stopping = false
	return rec, nil
}

// Recording reports whether a capture is currently active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}

// PermissionDenied reports whether a previous Start failed on microphone
// permission. The flag persists for the recorder's lifetime.
func (r *Recorder) PermissionDenied() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.denied
}
