package textnorm

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "whitespace only", in: "  \t\n ", want: ""},
		{name: "lowercases", in: "Elephant", want: "elephant"},
		{name: "trims", in: "  hello  ", want: "hello"},
		{name: "strips period", in: "The end.", want: "the end"},
		{name: "strips comma and exclamation", in: "Wow, really!", want: "wow really"},
		{name: "strips question mark", in: "Who goes there?", want: "who goes there"},
		{name: "strips quotes and apostrophes", in: `"Don't stop," she said.`, want: "dont stop she said"},
		{name: "strips semicolon and colon", in: "one; two: three", want: "one two three"},
		{name: "keeps hyphens", in: "merry-go-round", want: "merry-go-round"},
		{name: "keeps digits", in: "Chapter 7", want: "chapter 7"},
		{name: "punctuation only", in: "...!?", want: ""},
		{name: "unicode letters survive", in: "Ünïcorn!", want: "ünïcorn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"Hello, World!", "  spaced  ", "", "already clean"} {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeWords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: []string{}},
		{name: "sentence", in: "The cat sat.", want: []string{"the", "cat", "sat"}},
		{name: "drops bare punctuation", in: "yes ! no", want: []string{"yes", "no"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeWords(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeWords(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
