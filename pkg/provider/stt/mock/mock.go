// Package mock provides a scriptable stt.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/readalong/readalong/pkg/provider/stt"
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider is a fake STT backend. Script it either with a fixed Text or with
// TranscribeFunc for per-call behaviour. The zero value hears nothing.
type Provider struct {
	// Text is returned for every call when TranscribeFunc is nil.
	Text string

	// Err, when set, is returned for every call when TranscribeFunc is nil.
	Err error

	// TranscribeFunc, when non-nil, handles Transcribe calls.
	TranscribeFunc func(ctx context.Context, req stt.Request) (stt.Result, error)

	mu    sync.Mutex
	calls int
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Result, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.TranscribeFunc != nil {
		return p.TranscribeFunc(ctx, req)
	}
	if len(req.Audio) == 0 {
		return stt.Result{}, stt.ErrEmptyAudio
	}
	if p.Err != nil {
		return stt.Result{}, p.Err
	}
	return stt.Result{Text: p.Text}, nil
}

// Calls returns how many times Transcribe has been invoked.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
