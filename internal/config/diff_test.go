package config

import (
	"slices"
	"testing"
)

func baseConfig() *Config {
	cfg := &Config{}
	cfg.Server.LogLevel = LogInfo
	cfg.Providers.TTS = ProviderEntry{Name: "piper", BaseURL: "http://localhost:5000"}
	cfg.Providers.STT = ProviderEntry{Name: "whisper", BaseURL: "http://localhost:8081"}
	cfg.Reading.ApplyDefaults()
	cfg.Storage.ApplyDefaults()
	return cfg
}

func TestDiffNoChanges(t *testing.T) {
	t.Parallel()

	old, new := baseConfig(), baseConfig()
	d := Diff(old, new)
	if d.LogLevelChanged || d.ReadingChanged || len(d.ProvidersChanged) != 0 {
		t.Errorf("identical configs produced diff %+v", d)
	}
}

func TestDiffLogLevel(t *testing.T) {
	t.Parallel()

	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = LogDebug

	d := Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != LogDebug {
		t.Errorf("diff = %+v, want log level change to debug", d)
	}
}

func TestDiffReadingTunables(t *testing.T) {
	t.Parallel()

	old, new := baseConfig(), baseConfig()
	new.Reading.AcceptThreshold = 75

	d := Diff(old, new)
	if !d.ReadingChanged {
		t.Fatal("reading tunable change not detected")
	}
	if d.NewReading.AcceptThreshold != 75 {
		t.Errorf("NewReading.AcceptThreshold = %v", d.NewReading.AcceptThreshold)
	}
}

func TestDiffProviders(t *testing.T) {
	t.Parallel()

	old, new := baseConfig(), baseConfig()
	new.Providers.STT.BaseURL = "http://localhost:9999"
	new.Providers.StoryGen = ProviderEntry{Name: "ollama", Model: "llama3.2"}

	d := Diff(old, new)
	if !slices.Contains(d.ProvidersChanged, "stt") {
		t.Errorf("stt change not detected: %v", d.ProvidersChanged)
	}
	if !slices.Contains(d.ProvidersChanged, "storygen") {
		t.Errorf("storygen change not detected: %v", d.ProvidersChanged)
	}
	if slices.Contains(d.ProvidersChanged, "tts") {
		t.Errorf("tts falsely reported changed: %v", d.ProvidersChanged)
	}
}
