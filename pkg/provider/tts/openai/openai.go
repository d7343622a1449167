// Package openai provides a TTS provider backed by the OpenAI speech API.
package openai

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/readalong/readalong/pkg/provider/tts"
)

// pcmSampleRate is the fixed output rate of the OpenAI speech API's raw PCM
// response format (24 kHz, 16-bit, mono, little-endian).
const pcmSampleRate = 24000

const defaultVoice = "nova"

// Compile-time assertion that Provider implements tts.Provider.
var _ tts.Provider = (*Provider)(nil)

// Provider implements tts.Provider using the OpenAI speech API.
type Provider struct {
	client oai.Client
	model  string
	speed  float64
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
	speed   float64
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithSpeed sets the synthesis speed multiplier (0.25 to 4.0). This changes
// speaking pace at the source, which sounds better than post-hoc stretching
// when a consistently slower narrator is wanted.
func WithSpeed(speed float64) Option {
	return func(c *config) {
		c.speed = speed
	}
}

// New constructs a new OpenAI TTS Provider.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		model = string(oai.SpeechModelTTS1)
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  model,
		speed:  cfg.speed,
	}, nil
}

// Synthesize implements tts.Provider. The response is requested as raw PCM so
// no container parsing is needed.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (tts.Clip, error) {
	if req.Text == "" {
		return tts.Clip{}, tts.ErrEmptyText
	}

	voice := req.Voice
	if voice == "" {
		voice = defaultVoice
	}

	params := oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(p.model),
		Input:          req.Text,
		Voice:          oai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	}
	if p.speed > 0 {
		params.Speed = oai.Float(p.speed)
	}

	resp, err := p.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return tts.Clip{}, fmt.Errorf("openai: speech request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return tts.Clip{}, fmt.Errorf("openai: read speech response: %w", err)
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return tts.Clip{Samples: samples, SampleRate: pcmSampleRate}, nil
}

// Voices implements tts.Provider. The speech API has a fixed catalogue, so
// the list is static.
func (p *Provider) Voices(context.Context) ([]string, error) {
	return []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}, nil
}
