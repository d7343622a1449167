package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"tts":      {"openai", "piper"},
	"stt":      {"whisper", "openai"},
	"phonemes": {"builtin"},
	"storygen": {"openai", "anthropic", "gemini", "ollama", "mistral"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.Reading.ApplyDefaults()
	cfg.Storage.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("phonemes", cfg.Providers.Phonemes.Name)
	validateProviderName("storygen", cfg.Providers.StoryGen.Name)

	// Provider availability warnings. The reading loop is unusable without
	// synthesis and transcription.
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("providers.tts is not configured; read-along narration will be unavailable")
	}
	if cfg.Providers.STT.Name == "" {
		slog.Warn("providers.stt is not configured; reading attempts cannot be evaluated")
	}
	if cfg.Providers.StoryGen.Name == "" {
		slog.Warn("providers.storygen is not configured; new stories cannot be generated")
	}

	// Reading tunables
	r := cfg.Reading
	if r.AcceptThreshold < 0 || r.AcceptThreshold > 100 {
		errs = append(errs, fmt.Errorf("reading.accept_threshold %.1f is out of range [0, 100]", r.AcceptThreshold))
	}
	if r.SlowRate <= 0 || r.SlowRate > 1 {
		errs = append(errs, fmt.Errorf("reading.slow_rate %.2f is out of range (0, 1]", r.SlowRate))
	}
	if r.SuccessFeedbackMs < 0 {
		errs = append(errs, fmt.Errorf("reading.success_feedback_ms must not be negative"))
	}
	if r.FailureFeedbackMs < 0 {
		errs = append(errs, fmt.Errorf("reading.failure_feedback_ms must not be negative"))
	}
	if r.CaptureTailMs < 0 {
		errs = append(errs, fmt.Errorf("reading.capture_tail_ms must not be negative"))
	}
	if r.TranscribeTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("reading.transcribe_timeout_ms must be positive"))
	}

	// Storage
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; stories and reports will not survive restarts")
	}
	if cfg.Storage.InitialCredits < 0 {
		errs = append(errs, fmt.Errorf("storage.initial_credits must not be negative"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
