// Command readalong is the main entry point for the ReadAlong reading
// practice server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/readalong/readalong/internal/app"
	"github.com/readalong/readalong/internal/config"
	"github.com/readalong/readalong/internal/observe"
	"github.com/readalong/readalong/internal/resilience"
	"github.com/readalong/readalong/pkg/provider/phonemes"
	phonemebuiltin "github.com/readalong/readalong/pkg/provider/phonemes/builtin"
	"github.com/readalong/readalong/pkg/provider/storygen"
	"github.com/readalong/readalong/pkg/provider/storygen/anyllm"
	"github.com/readalong/readalong/pkg/provider/stt"
	oaistt "github.com/readalong/readalong/pkg/provider/stt/openai"
	"github.com/readalong/readalong/pkg/provider/stt/whisper"
	"github.com/readalong/readalong/pkg/provider/tts"
	oaitts "github.com/readalong/readalong/pkg/provider/tts/openai"
	"github.com/readalong/readalong/pkg/provider/tts/piper"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "readalong: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "readalong: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("readalong starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "readalong",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			level.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.ReadingChanged {
			application.ApplyReadingConfig(d.NewReading)
		}
		for _, kind := range d.ProvidersChanged {
			slog.Warn("provider config changed, restart required to apply", "kind", kind)
		}
	})
	if err != nil {
		slog.Warn("config watcher unavailable, hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider category names to the implementations that
// ship with ReadAlong. Used for startup logging.
var builtinProviders = map[string][]string{
	"tts":      {"openai", "piper"},
	"stt":      {"whisper", "openai"},
	"phonemes": {"builtin"},
	"storygen": {"openai", "anthropic", "gemini", "ollama", "mistral"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []oaitts.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaitts.WithBaseURL(entry.BaseURL))
		}
		if speed := optFloat(entry.Options, "speed"); speed > 0 {
			opts = append(opts, oaitts.WithSpeed(speed))
		}
		return oaitts.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterTTS("piper", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []piper.Option
		if voice := optString(entry.Options, "voice"); voice != "" {
			opts = append(opts, piper.WithVoice(voice))
		}
		return piper.New(entry.BaseURL, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oaistt.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		return oaistt.New(entry.APIKey, entry.Model, opts...)
	})

	// ── Phonemes ──────────────────────────────────────────────────────────────

	reg.RegisterPhonemes("builtin", func(config.ProviderEntry) (phonemes.Provider, error) {
		return phonemebuiltin.New(), nil
	})

	// ── Story generation ──────────────────────────────────────────────────────
	// All any-llm backends share the same pattern: optional APIKey + BaseURL.
	for _, providerName := range []string{"openai", "anthropic", "gemini", "ollama", "mistral"} {
		reg.RegisterStoryGen(providerName, func(entry config.ProviderEntry) (storygen.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to
// consume. Entries with a "fallbacks" options list are wrapped in a
// circuit-breaking fallback chain.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if entry := cfg.Providers.TTS; entry.Name != "" {
		primary, err := reg.CreateTTS(entry)
		if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", entry.Name, err)
		}
		ps.TTS = primary
		if fbs := fallbackEntries(entry.Options); len(fbs) > 0 {
			chain := resilience.NewTTSFallback(primary, entry.Name, fallbackConfig())
			for _, fb := range fbs {
				p, err := reg.CreateTTS(fb)
				if err != nil {
					return nil, fmt.Errorf("create tts fallback %q: %w", fb.Name, err)
				}
				chain.AddFallback(fb.Name, p)
			}
			ps.TTS = chain
		}
		slog.Info("provider created", "kind", "tts", "name", entry.Name)
	}

	if entry := cfg.Providers.STT; entry.Name != "" {
		primary, err := reg.CreateSTT(entry)
		if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", entry.Name, err)
		}
		ps.STT = primary
		if fbs := fallbackEntries(entry.Options); len(fbs) > 0 {
			chain := resilience.NewSTTFallback(primary, entry.Name, fallbackConfig())
			for _, fb := range fbs {
				p, err := reg.CreateSTT(fb)
				if err != nil {
					return nil, fmt.Errorf("create stt fallback %q: %w", fb.Name, err)
				}
				chain.AddFallback(fb.Name, p)
			}
			ps.STT = chain
		}
		slog.Info("provider created", "kind", "stt", "name", entry.Name)
	}

	if entry := cfg.Providers.Phonemes; entry.Name != "" {
		p, err := reg.CreatePhonemes(entry)
		if err != nil {
			return nil, fmt.Errorf("create phonemes provider %q: %w", entry.Name, err)
		}
		ps.Phonemes = p
		slog.Info("provider created", "kind", "phonemes", "name", entry.Name)
	}

	if entry := cfg.Providers.StoryGen; entry.Name != "" {
		primary, err := reg.CreateStoryGen(entry)
		if err != nil {
			return nil, fmt.Errorf("create storygen provider %q: %w", entry.Name, err)
		}
		ps.StoryGen = primary
		if fbs := fallbackEntries(entry.Options); len(fbs) > 0 {
			chain := resilience.NewStoryGenFallback(primary, entry.Name, fallbackConfig())
			for _, fb := range fbs {
				p, err := reg.CreateStoryGen(fb)
				if err != nil {
					return nil, fmt.Errorf("create storygen fallback %q: %w", fb.Name, err)
				}
				chain.AddFallback(fb.Name, p)
			}
			ps.StoryGen = chain
		}
		slog.Info("provider created", "kind", "storygen", "name", entry.Name)
	}

	return ps, nil
}

// fallbackConfig is the circuit breaker tuning shared by all fallback chains.
func fallbackConfig() resilience.FallbackConfig {
	return resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  3,
			ResetTimeout: 30 * time.Second,
		},
	}
}

// fallbackEntries parses the "fallbacks" options list into provider entries.
// Each list element is a map with the same keys as a provider block:
//
//	options:
//	  fallbacks:
//	    - name: openai
//	      api_key: sk-...
//	      model: whisper-1
func fallbackEntries(opts map[string]any) []config.ProviderEntry {
	raw, ok := opts["fallbacks"].([]any)
	if !ok {
		return nil
	}
	var entries []config.ProviderEntry
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			slog.Warn("ignoring malformed fallback entry", "entry", item)
			continue
		}
		e := config.ProviderEntry{
			Name:    optString(m, "name"),
			APIKey:  optString(m, "api_key"),
			BaseURL: optString(m, "base_url"),
			Model:   optString(m, "model"),
		}
		if e.Name == "" {
			slog.Warn("ignoring fallback entry without a name")
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        ReadAlong — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("Phonemes", cfg.Providers.Phonemes.Name, "")
	printProvider("StoryGen", cfg.Providers.StoryGen.Name, cfg.Providers.StoryGen.Model)
	if cfg.Storage.PostgresDSN != "" {
		fmt.Printf("║  Storage         : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  Storage         : %-19s ║\n", "in-memory")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optFloat extracts a float value from a provider Options map. YAML decodes
// unquoted numbers as int or float64 depending on their form.
func optFloat(opts map[string]any, key string) float64 {
	if opts == nil {
		return 0
	}
	switch v := opts[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
