package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/readalong/readalong/pkg/provider/stt"
	"github.com/readalong/readalong/pkg/provider/stt/mock"
)

func testFallbackConfig() FallbackConfig {
	return FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
	}
}

func TestSTTFallback_PrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := &mock.Provider{Text: "the cat sat"}
	backup := &mock.Provider{Text: "wrong backend"}

	f := NewSTTFallback(primary, "primary", testFallbackConfig())
	f.AddFallback("backup", backup)

	res, err := f.Transcribe(context.Background(), stt.Request{Audio: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "the cat sat" {
		t.Errorf("Text = %q, want %q", res.Text, "the cat sat")
	}
	if backup.Calls() != 0 {
		t.Errorf("backup called %d times, want 0", backup.Calls())
	}
}

func TestSTTFallback_FailsOverToBackup(t *testing.T) {
	t.Parallel()

	primary := &mock.Provider{Err: errors.New("whisper server down")}
	backup := &mock.Provider{Text: "from backup"}

	f := NewSTTFallback(primary, "primary", testFallbackConfig())
	f.AddFallback("backup", backup)

	res, err := f.Transcribe(context.Background(), stt.Request{Audio: []byte{1}})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "from backup" {
		t.Errorf("Text = %q, want %q", res.Text, "from backup")
	}
	if primary.Calls() != 1 {
		t.Errorf("primary called %d times, want 1", primary.Calls())
	}
}

func TestSTTFallback_AllFail(t *testing.T) {
	t.Parallel()

	primary := &mock.Provider{Err: errors.New("down")}
	backup := &mock.Provider{Err: errors.New("also down")}

	f := NewSTTFallback(primary, "primary", testFallbackConfig())
	f.AddFallback("backup", backup)

	_, err := f.Transcribe(context.Background(), stt.Request{Audio: []byte{1}})
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
}

func TestSTTFallback_SkipsOpenCircuit(t *testing.T) {
	t.Parallel()

	primary := &mock.Provider{Err: errors.New("down")}
	backup := &mock.Provider{Text: "ok"}

	f := NewSTTFallback(primary, "primary", testFallbackConfig())
	f.AddFallback("backup", backup)

	// Trip the primary's breaker (MaxFailures = 2).
	for range 2 {
		if _, err := f.Transcribe(context.Background(), stt.Request{Audio: []byte{1}}); err != nil {
			t.Fatalf("Transcribe: %v", err)
		}
	}
	callsBefore := primary.Calls()

	// With the circuit open, the primary must not be invoked at all.
	res, err := f.Transcribe(context.Background(), stt.Request{Audio: []byte{1}})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "ok" {
		t.Errorf("Text = %q, want %q", res.Text, "ok")
	}
	if primary.Calls() != callsBefore {
		t.Errorf("primary called with open circuit: %d -> %d calls", callsBefore, primary.Calls())
	}
}
