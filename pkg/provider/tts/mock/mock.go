// Package mock provides a scriptable tts.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/readalong/readalong/pkg/provider/tts"
)

// Compile-time assertion that Provider implements tts.Provider.
var _ tts.Provider = (*Provider)(nil)

// Provider is a fake TTS backend. The zero value is usable: every request
// yields 100 ms of silence at 16 kHz. Set SynthesizeFunc to script behaviour.
type Provider struct {
	// SynthesizeFunc, when non-nil, handles Synthesize calls.
	SynthesizeFunc func(ctx context.Context, req tts.Request) (tts.Clip, error)

	// VoiceList is returned by Voices. Defaults to ["mock"].
	VoiceList []string

	mu    sync.Mutex
	calls []tts.Request
}

// Synthesize records the request and delegates to SynthesizeFunc when set.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (tts.Clip, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	if p.SynthesizeFunc != nil {
		return p.SynthesizeFunc(ctx, req)
	}
	if req.Text == "" {
		return tts.Clip{}, tts.ErrEmptyText
	}
	const rate = 16000
	return tts.Clip{Samples: make([]int16, rate/10), SampleRate: rate}, nil
}

// Voices implements tts.Provider.
func (p *Provider) Voices(context.Context) ([]string, error) {
	if len(p.VoiceList) == 0 {
		return []string{"mock"}, nil
	}
	return p.VoiceList, nil
}

// Calls returns a copy of all recorded synthesis requests.
func (p *Provider) Calls() []tts.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]tts.Request, len(p.calls))
	copy(out, p.calls)
	return out
}
