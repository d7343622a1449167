// Package piper provides a TTS provider backed by a local Piper HTTP server.
//
// Piper (https://github.com/rhasspy/piper) is a fast local neural TTS engine.
// The provider talks to its HTTP wrapper, which accepts a JSON body on POST /
// and returns a 16-bit PCM WAV file. No API key is needed, which makes it the
// natural offline backend for classroom deployments.
package piper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/readalong/readalong/pkg/audioproc"
	"github.com/readalong/readalong/pkg/provider/tts"
)

// Compile-time assertion that Provider implements tts.Provider.
var _ tts.Provider = (*Provider)(nil)

// Provider implements tts.Provider against a Piper HTTP server.
type Provider struct {
	serverURL  string
	voice      string
	httpClient *http.Client
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithVoice sets the default Piper voice model (e.g., "en_US-lessac-medium").
func WithVoice(voice string) Option {
	return func(p *Provider) {
		p.voice = voice
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// New creates a Provider that connects to the Piper HTTP server at serverURL
// (e.g., "http://localhost:5000"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("piper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Synthesize implements tts.Provider by POSTing the text to the Piper server
// and decoding the returned WAV.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (tts.Clip, error) {
	if req.Text == "" {
		return tts.Clip{}, tts.ErrEmptyText
	}

	voice := req.Voice
	if voice == "" {
		voice = p.voice
	}

	payload, err := json.Marshal(struct {
		Text  string `json:"text"`
		Voice string `json:"voice,omitempty"`
	}{Text: req.Text, Voice: voice})
	if err != nil {
		return tts.Clip{}, fmt.Errorf("piper: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL, bytes.NewReader(payload))
	if err != nil {
		return tts.Clip{}, fmt.Errorf("piper: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return tts.Clip{}, fmt.Errorf("piper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tts.Clip{}, fmt.Errorf("piper: server returned HTTP %d", resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return tts.Clip{}, fmt.Errorf("piper: read response body: %w", err)
	}

	samples, rate, err := audioproc.DecodeWAV(wav)
	if err != nil {
		return tts.Clip{}, fmt.Errorf("piper: decode wav: %w", err)
	}
	return tts.Clip{Samples: samples, SampleRate: rate}, nil
}

// Voices implements tts.Provider. The HTTP wrapper serves a single loaded
// model, so only the configured voice is reported.
func (p *Provider) Voices(context.Context) ([]string, error) {
	if p.voice == "" {
		return nil, nil
	}
	return []string{p.voice}, nil
}
