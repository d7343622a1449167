package config

// ConfigDiff describes what changed between two configs. Only fields that
// can be safely hot-reloaded are tracked; provider and storage changes
// require a restart and are reported so the operator can be warned.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ReadingChanged is true when any reading tunable differs. Live
	// sessions pick the new values up on their next turn.
	ReadingChanged bool
	NewReading     ReadingConfig

	// ProvidersChanged lists provider kinds whose configuration differs.
	// These do not hot-reload.
	ProvidersChanged []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Reading != new.Reading {
		d.ReadingChanged = true
		d.NewReading = new.Reading
	}

	for _, p := range []struct {
		kind     string
		old, new ProviderEntry
	}{
		{"tts", old.Providers.TTS, new.Providers.TTS},
		{"stt", old.Providers.STT, new.Providers.STT},
		{"phonemes", old.Providers.Phonemes, new.Providers.Phonemes},
		{"storygen", old.Providers.StoryGen, new.Providers.StoryGen},
	} {
		if !providerEntryEqual(p.old, p.new) {
			d.ProvidersChanged = append(d.ProvidersChanged, p.kind)
		}
	}

	return d
}

// providerEntryEqual compares entries ignoring the free-form Options map
// only when both are empty; any populated Options map is treated as changed
// conservatively since values may be nested.
func providerEntryEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	return len(a.Options) == 0 && len(b.Options) == 0
}
