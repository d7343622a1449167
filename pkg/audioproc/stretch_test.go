package audioproc

import (
	"math"
	"testing"
)

func TestSemitoneShift(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rate float64
		want float64
	}{
		{name: "half speed is an octave up", rate: 0.5, want: 12},
		{name: "double speed is an octave down", rate: 2.0, want: -12},
		{name: "normal speed no shift", rate: 1.0, want: 0},
		{name: "zero rate no shift", rate: 0, want: 0},
		{name: "negative rate no shift", rate: -1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SemitoneShift(tt.rate); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SemitoneShift(%v) = %v, want %v", tt.rate, got, tt.want)
			}
		})
	}

	// Spot check a non-trivial rate against the closed form.
	got := SemitoneShift(0.7)
	want := -12 * math.Log2(0.7)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("SemitoneShift(0.7) = %v, want %v", got, want)
	}
}

func TestResample(t *testing.T) {
	t.Parallel()

	in := sine(440, 16000, 16000)

	t.Run("downsample halves length", func(t *testing.T) {
		t.Parallel()
		out := Resample(in, 16000, 8000)
		if got, want := len(out), 8000; got != want {
			t.Errorf("len = %d, want %d", got, want)
		}
	})

	t.Run("upsample doubles length", func(t *testing.T) {
		t.Parallel()
		out := Resample(in, 16000, 32000)
		if got, want := len(out), 32000; got != want {
			t.Errorf("len = %d, want %d", got, want)
		}
	})

	t.Run("same rate returns input", func(t *testing.T) {
		t.Parallel()
		out := Resample(in, 16000, 16000)
		if &out[0] != &in[0] {
			t.Error("expected input slice back for equal rates")
		}
	})
}

func TestStretch(t *testing.T) {
	t.Parallel()

	const rate = 16000
	in := sine(220, rate, rate) // one second

	t.Run("slowdown lengthens", func(t *testing.T) {
		t.Parallel()
		out := Stretch(in, rate, 1/0.7)
		want := float64(len(in)) / 0.7
		if math.Abs(float64(len(out))-want) > float64(rate)/10 {
			t.Errorf("stretched length = %d, want about %.0f", len(out), want)
		}
	})

	t.Run("factor one is identity", func(t *testing.T) {
		t.Parallel()
		out := Stretch(in, rate, 1)
		if &out[0] != &in[0] {
			t.Error("expected input slice back for factor 1")
		}
	})

	t.Run("level roughly preserved", func(t *testing.T) {
		t.Parallel()
		out := Stretch(in, rate, 1.5)
		inRMS, outRMS := RMS(in), RMS(out)
		if outRMS < inRMS*0.5 || outRMS > inRMS*1.5 {
			t.Errorf("RMS drifted from %v to %v", inRMS, outRMS)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		if out := Stretch(nil, rate, 2); len(out) != 0 {
			t.Errorf("Stretch(nil) returned %d samples", len(out))
		}
	})
}

func TestStretchPitchCorrected(t *testing.T) {
	t.Parallel()

	const rate = 16000
	in := sine(220, rate, rate/2)

	out := StretchPitchCorrected(in, rate, 0.7)
	want := float64(len(in)) / 0.7
	if math.Abs(float64(len(out))-want) > float64(rate)/10 {
		t.Errorf("length = %d, want about %.0f", len(out), want)
	}

	if same := StretchPitchCorrected(in, rate, 1); &same[0] != &in[0] {
		t.Error("rate 1 should return the input unchanged")
	}
}
