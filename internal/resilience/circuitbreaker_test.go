package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBackendDown = errors.New("whisper server: connection refused")

// flakyBackend simulates a transcription backend that fails until it is told
// to recover.
type flakyBackend struct {
	healthy bool
	calls   int
}

func (b *flakyBackend) transcribe() error {
	b.calls++
	if !b.healthy {
		return errBackendDown
	}
	return nil
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "whisper"})
	if cb.maxFailures != 5 {
		t.Errorf("maxFailures = %d, want 5", cb.maxFailures)
	}
	if cb.resetTimeout != 30*time.Second {
		t.Errorf("resetTimeout = %v, want 30s", cb.resetTimeout)
	}
	if cb.halfOpenMax != 3 {
		t.Errorf("halfOpenMax = %d, want 3", cb.halfOpenMax)
	}
	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	t.Parallel()

	backend := &flakyBackend{}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "whisper",
		MaxFailures:  3,
		ResetTimeout: time.Hour,
	})

	for i := range 3 {
		if err := cb.Execute(backend.transcribe); !errors.Is(err, errBackendDown) {
			t.Fatalf("call %d: err = %v, want backend error", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("state after 3 failures = %v, want open", cb.State())
	}

	// Open breaker must reject without reaching the backend.
	if err := cb.Execute(backend.transcribe); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if backend.calls != 3 {
		t.Errorf("backend reached %d times, want 3", backend.calls)
	}
}

func TestCircuitBreaker_SuccessClearsFailureStreak(t *testing.T) {
	t.Parallel()

	backend := &flakyBackend{}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "piper",
		MaxFailures: 3,
	})

	// Two failures, one good call, two more failures. The streak never
	// reaches three so the breaker stays closed.
	_ = cb.Execute(backend.transcribe)
	_ = cb.Execute(backend.transcribe)
	backend.healthy = true
	if err := cb.Execute(backend.transcribe); err != nil {
		t.Fatalf("healthy call: %v", err)
	}
	backend.healthy = false
	_ = cb.Execute(backend.transcribe)
	_ = cb.Execute(backend.transcribe)

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	t.Parallel()

	backend := &flakyBackend{}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "openai-stt",
		MaxFailures:  1,
		ResetTimeout: 15 * time.Millisecond,
	})

	_ = cb.Execute(backend.transcribe)
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	time.Sleep(20 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Errorf("state after reset timeout = %v, want half-open", cb.State())
	}
}

func TestCircuitBreaker_ClosesAfterSuccessfulProbes(t *testing.T) {
	t.Parallel()

	backend := &flakyBackend{}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "openai-tts",
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  2,
	})

	_ = cb.Execute(backend.transcribe)
	time.Sleep(15 * time.Millisecond)

	// The backend comes back; two clean probes close the breaker.
	backend.healthy = true
	for i := range 2 {
		if err := cb.Execute(backend.transcribe); err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("state after probes = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_ReopensOnFailedProbe(t *testing.T) {
	t.Parallel()

	backend := &flakyBackend{}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "whisper",
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  3,
	})

	_ = cb.Execute(backend.transcribe)
	time.Sleep(15 * time.Millisecond)

	// Still down: the first probe fails and re-opens the breaker.
	if err := cb.Execute(backend.transcribe); !errors.Is(err, errBackendDown) {
		t.Fatalf("probe err = %v, want backend error", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("state after failed probe = %v, want open", cb.State())
	}
	if err := cb.Execute(backend.transcribe); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()

	backend := &flakyBackend{}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "whisper",
		MaxFailures:  1,
		ResetTimeout: time.Hour,
	})

	_ = cb.Execute(backend.transcribe)
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("state after Reset = %v, want closed", cb.State())
	}
	backend.healthy = true
	if err := cb.Execute(backend.transcribe); err != nil {
		t.Errorf("call after Reset: %v", err)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
