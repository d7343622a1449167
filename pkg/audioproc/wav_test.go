package audioproc

import (
	"errors"
	"math"
	"testing"
	"time"
)

func sine(freq float64, sampleRate, n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(10000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestEncodeDecodeWAV(t *testing.T) {
	t.Parallel()

	samples := sine(440, 16000, 1600)
	wav := EncodeWAV(samples, 16000)

	if len(wav) != 44+len(samples)*2 {
		t.Fatalf("encoded size = %d, want %d", len(wav), 44+len(samples)*2)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE magic")
	}

	got, rate, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if len(got) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(samples))
	}
	for i := range got {
		if got[i] != samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	t.Parallel()

	t.Run("too short", func(t *testing.T) {
		t.Parallel()
		if _, _, err := DecodeWAV([]byte("RIFF")); !errors.Is(err, ErrShortWAV) {
			t.Errorf("err = %v, want ErrShortWAV", err)
		}
	})

	t.Run("bad magic", func(t *testing.T) {
		t.Parallel()
		data := make([]byte, 64)
		if _, _, err := DecodeWAV(data); err == nil {
			t.Error("expected error for non-RIFF data")
		}
	})

	t.Run("non-pcm format", func(t *testing.T) {
		t.Parallel()
		wav := EncodeWAV(sine(440, 8000, 80), 8000)
		wav[20] = 3 // IEEE float format tag
		if _, _, err := DecodeWAV(wav); !errors.Is(err, ErrUnsupportedWAV) {
			t.Errorf("err = %v, want ErrUnsupportedWAV", err)
		}
	})
}

func TestDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		samples    int
		sampleRate int
		want       time.Duration
	}{
		{name: "one second", samples: 16000, sampleRate: 16000, want: time.Second},
		{name: "half second", samples: 11025, sampleRate: 22050, want: 500 * time.Millisecond},
		{name: "empty", samples: 0, sampleRate: 16000, want: 0},
		{name: "zero rate", samples: 100, sampleRate: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Duration(make([]int16, tt.samples), tt.sampleRate)
			if got != tt.want {
				t.Errorf("Duration = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRMS(t *testing.T) {
	t.Parallel()

	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v", got)
	}
	if got := RMS(make([]int16, 100)); got != 0 {
		t.Errorf("RMS(silence) = %v", got)
	}
	loud := RMS(sine(440, 16000, 1600))
	quiet := RMS(sine(440, 16000, 1600))
	if loud != quiet {
		t.Errorf("identical signals, differing RMS: %v vs %v", loud, quiet)
	}
	if loud < 0.1 {
		t.Errorf("sine RMS = %v, expected a clearly audible level", loud)
	}
}
