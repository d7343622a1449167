// Package playback turns target text into spoken audio for a reading turn.
//
// The Player wraps a tts.Provider and a Sink. Speak synthesises the text,
// optionally slows it down with pitch-corrected time-stretching, hands the
// clip to the sink and reports the clip duration up front so the caller can
// schedule word highlighting. A caller-supplied callback fires once playback
// has run to completion; a stopped or superseded playback never fires it.
package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/readalong/readalong/internal/observe"
	"github.com/readalong/readalong/pkg/audioproc"
	"github.com/readalong/readalong/pkg/provider/tts"
)

// Request describes one utterance to speak.
type Request struct {
	// Text is the target text. Empty text yields a zero-duration no-op.
	Text string

	// Voice selects the TTS voice. Empty means the backend default.
	Voice string

	// SingleWord hints that Text is an isolated word.
	SingleWord bool

	// Rate is the playback-rate multiplier. Values other than 1 slow down or
	// speed up the clip with pitch correction. Zero means 1.
	Rate float64
}

// Player drives speech synthesis and playback. At most one playback is active
// at a time; starting a new one stops and disposes the previous one first.
//
// Player is safe for concurrent use.
type Player struct {
	provider tts.Provider
	sink     Sink
	log      *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	current int // playback generation, for logging
}

// New creates a Player speaking through provider into sink.
func New(provider tts.Provider, sink Sink) *Player {
	return &Player{
		provider: provider,
		sink:     sink,
		log:      slog.Default().With("component", "playback"),
	}
}

// Speak synthesises req and starts playing it, returning the clip duration.
// onDone, if non-nil, runs exactly once after the clip has fully played out.
// It does not run when the playback is stopped or replaced before finishing.
//
// Synthesis or playback failure is not an error to the caller: Speak returns
// a zero duration, onDone still fires, and the turn proceeds as a no-op.
func (p *Player) Speak(ctx context.Context, req Request, onDone func()) time.Duration {
	p.stopLocked()

	start := time.Now()
	clip, err := p.provider.Synthesize(ctx, tts.Request{
		Text:       req.Text,
		Voice:      req.Voice,
		SingleWord: req.SingleWord,
	})
	observe.DefaultMetrics().SynthesisDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil || clip.Empty() {
		if err != nil {
			p.log.Warn("synthesis failed, skipping playback", "error", err)
			observe.DefaultMetrics().RecordProviderError(ctx, "tts", "synthesize")
		}
		if onDone != nil {
			go onDone()
		}
		return 0
	}

	rate := req.Rate
	if rate > 0 && rate != 1 {
		clip.Samples = audioproc.StretchPitchCorrected(clip.Samples, clip.SampleRate, rate)
	}
	dur := audioproc.Duration(clip.Samples, clip.SampleRate)

	playCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.current++
	gen := p.current
	p.mu.Unlock()

	go func() {
		defer close(done)
		began := time.Now()
		if err := p.sink.Play(playCtx, clip); err != nil {
			if playCtx.Err() != nil {
				return
			}
			p.log.Warn("sink playback failed", "generation", gen, "error", err)
		}
		// The sink may return before the audio has sounded; pace completion
		// on the clip duration.
		if rem := dur - time.Since(began); rem > 0 {
			select {
			case <-playCtx.Done():
				return
			case <-time.After(rem):
			}
		}
		if playCtx.Err() != nil {
			return
		}
		if onDone != nil {
			onDone()
		}
	}()

	return dur
}

// Stop cancels the active playback, if any, and waits for its resources to be
// released. The stopped playback's completion callback does not fire.
func (p *Player) Stop() {
	p.stopLocked()
}

func (p *Player) stopLocked() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
