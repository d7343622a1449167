package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/readalong/readalong/pkg/provider/tts"
	"github.com/readalong/readalong/pkg/provider/tts/mock"
)

// recordingSink captures every clip it is asked to play.
type recordingSink struct {
	mu    sync.Mutex
	clips []tts.Clip
	err   error
}

func (s *recordingSink) Play(_ context.Context, clip tts.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips = append(s.clips, clip)
	return s.err
}

func (s *recordingSink) played() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clips)
}

func waitDone(t *testing.T, ch <-chan struct{}, within time.Duration) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(within):
		t.Fatal("completion callback did not fire in time")
	}
}

func TestPlayer_SpeakReturnsDurationAndCompletes(t *testing.T) {
	t.Parallel()

	// Mock default: 100 ms of silence at 16 kHz.
	sink := &recordingSink{}
	p := New(&mock.Provider{}, sink)

	done := make(chan struct{})
	dur := p.Speak(context.Background(), Request{Text: "hello"}, func() { close(done) })

	if dur != 100*time.Millisecond {
		t.Errorf("duration = %v, want 100ms", dur)
	}
	waitDone(t, done, time.Second)
	if sink.played() != 1 {
		t.Errorf("sink played %d clips, want 1", sink.played())
	}
}

func TestPlayer_SynthesisFailureIsNoOp(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		SynthesizeFunc: func(context.Context, tts.Request) (tts.Clip, error) {
			return tts.Clip{}, errors.New("backend down")
		},
	}
	sink := &recordingSink{}
	p := New(provider, sink)

	done := make(chan struct{})
	dur := p.Speak(context.Background(), Request{Text: "hello"}, func() { close(done) })

	if dur != 0 {
		t.Errorf("duration = %v, want 0", dur)
	}
	// The turn must not hang: completion still fires.
	waitDone(t, done, time.Second)
	if sink.played() != 0 {
		t.Errorf("sink played %d clips, want 0", sink.played())
	}
}

func TestPlayer_SlowRateStretchesDuration(t *testing.T) {
	t.Parallel()

	p := New(&mock.Provider{}, &recordingSink{})

	dur := p.Speak(context.Background(), Request{Text: "hello", Rate: 0.5}, nil)

	// 100 ms source at half speed plays for roughly 200 ms. The overlap-add
	// stretcher works in whole windows, so allow some slack.
	if dur < 150*time.Millisecond || dur > 260*time.Millisecond {
		t.Errorf("duration = %v, want ~200ms", dur)
	}
	p.Stop()
}

func TestPlayer_NewSpeakStopsPrevious(t *testing.T) {
	t.Parallel()

	// The first clip is two seconds long so it is still playing when the
	// second request arrives.
	provider := &mock.Provider{
		SynthesizeFunc: func(_ context.Context, req tts.Request) (tts.Clip, error) {
			const rate = 16000
			n := rate / 10
			if req.Text == "first" {
				n = rate * 2
			}
			return tts.Clip{Samples: make([]int16, n), SampleRate: rate}, nil
		},
	}
	sink := &recordingSink{}
	p := New(provider, sink)

	firstDone := make(chan struct{})
	p.Speak(context.Background(), Request{Text: "first"}, func() { close(firstDone) })

	secondDone := make(chan struct{})
	p.Speak(context.Background(), Request{Text: "second"}, func() { close(secondDone) })

	waitDone(t, secondDone, time.Second)
	select {
	case <-firstDone:
		t.Error("superseded playback fired its completion callback")
	default:
	}
}

func TestPlayer_StopSuppressesCompletion(t *testing.T) {
	t.Parallel()

	p := New(&mock.Provider{}, &recordingSink{})

	done := make(chan struct{})
	p.Speak(context.Background(), Request{Text: "hello"}, func() { close(done) })
	p.Stop()

	select {
	case <-done:
		t.Error("stopped playback fired its completion callback")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPlayer_SinkErrorStillCompletes(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{err: errors.New("device gone")}
	p := New(&mock.Provider{}, sink)

	done := make(chan struct{})
	p.Speak(context.Background(), Request{Text: "hello"}, func() { close(done) })

	waitDone(t, done, time.Second)
}
