package builtin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/readalong/readalong/pkg/provider/phonemes"
)

func graphemes(units []phonemes.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Grapheme
	}
	return out
}

func TestSplit(t *testing.T) {
	t.Parallel()

	p := New()
	tests := []struct {
		word string
		want []string
	}{
		{word: "cat", want: []string{"c", "a", "t"}},
		{word: "ship", want: []string{"sh", "i", "p"}},
		{word: "sheep", want: []string{"sh", "ee", "p"}},
		{word: "catch", want: []string{"c", "a", "tch"}},
		{word: "night", want: []string{"n", "igh", "t"}},
		{word: "queen", want: []string{"qu", "ee", "n"}},
		// Silent final e merges into the preceding consonant unit.
		{word: "cake", want: []string{"c", "a", "ke"}},
		// Capitalisation and punctuation are normalised away first.
		{word: "Ship!", want: []string{"sh", "i", "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			t.Parallel()
			units, err := p.Split(context.Background(), tt.word)
			if err != nil {
				t.Fatalf("Split(%q): %v", tt.word, err)
			}
			got := graphemes(units)
			if len(got) != len(tt.want) {
				t.Fatalf("Split(%q) = %v, want %v", tt.word, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Split(%q) = %v, want %v", tt.word, got, tt.want)
				}
			}
		})
	}
}

func TestSplitGraphemesCoverWord(t *testing.T) {
	t.Parallel()

	p := New()
	for _, word := range []string{"elephant", "dragon", "chair", "yellow", "fox", "house"} {
		units, err := p.Split(context.Background(), word)
		if err != nil {
			t.Fatalf("Split(%q): %v", word, err)
		}
		if joined := strings.Join(graphemes(units), ""); joined != word {
			t.Errorf("graphemes of %q join to %q", word, joined)
		}
	}
}

func TestSplitEmpty(t *testing.T) {
	t.Parallel()

	p := New()
	if _, err := p.Split(context.Background(), "  !? "); !errors.Is(err, phonemes.ErrEmptyWord) {
		t.Errorf("err = %v, want ErrEmptyWord", err)
	}
}

func TestSplitSoundsNonEmpty(t *testing.T) {
	t.Parallel()

	p := New()
	units, err := p.Split(context.Background(), "phone")
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range units {
		if u.Sound == "" {
			t.Errorf("unit %q has empty sound", u.Grapheme)
		}
	}
}
