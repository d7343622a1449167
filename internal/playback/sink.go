package playback

import (
	"context"

	"github.com/readalong/readalong/pkg/provider/tts"
)

// Sink receives PCM audio for rendering. Implementations deliver the clip to
// a speaker, a WebSocket peer, or a test buffer. Play may return before the
// audio has finished sounding on the far end; the [Player] paces completion
// on the clip duration instead.
type Sink interface {
	Play(ctx context.Context, clip tts.Clip) error
}

// FuncSink adapts a function to a [Sink].
type FuncSink func(ctx context.Context, clip tts.Clip) error

// Play implements Sink.
func (f FuncSink) Play(ctx context.Context, clip tts.Clip) error {
	return f(ctx, clip)
}
