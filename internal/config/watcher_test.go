package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcherInitialLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, validYAML)

	w, err := NewWatcher(path, nil, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Providers.TTS.Name; got != "piper" {
		t.Errorf("Current().Providers.TTS.Name = %q", got)
	}
}

func TestWatcherInitialLoadInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, "server: [")

	if _, err := NewWatcher(path, nil); err == nil {
		t.Error("expected error for invalid initial config")
	}
}

func TestWatcherDetectsChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, validYAML)

	var fired atomic.Int32
	w, err := NewWatcher(path, func(old, new *Config) {
		if old.Reading.AcceptThreshold == 70 && new.Reading.AcceptThreshold == 80 {
			fired.Add(1)
		}
	}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Ensure a different mtime even on coarse filesystem clocks.
	time.Sleep(20 * time.Millisecond)
	writeConfigFile(t, path, strings.Replace(validYAML, "accept_threshold: 70", "accept_threshold: 80", 1))
	now := time.Now().Add(time.Second)
	_ = os.Chtimes(path, now, now)

	deadline := time.After(2 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher did not observe the change")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if got := w.Current().Reading.AcceptThreshold; got != 80 {
		t.Errorf("Current().Reading.AcceptThreshold = %v, want 80", got)
	}
}

func TestWatcherKeepsOldConfigOnInvalidUpdate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, validYAML)

	w, err := NewWatcher(path, nil, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	writeConfigFile(t, path, "reading: {accept_threshold: 9000}")
	now := time.Now().Add(time.Second)
	_ = os.Chtimes(path, now, now)

	// Give the poller a few cycles to (not) pick it up.
	time.Sleep(100 * time.Millisecond)

	if got := w.Current().Reading.AcceptThreshold; got != 70 {
		t.Errorf("invalid update replaced config; AcceptThreshold = %v", got)
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, validYAML)

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Stop()
	w.Stop()
}
