// Package phonemes defines the Provider interface for grapheme-to-phoneme
// splitting.
//
// Phoneme drills sound a word out unit by unit ("sh", "ee", "p") while the
// matching letters highlight. A provider maps a written word to that ordered
// unit list. Implementations must be safe for concurrent use.
package phonemes

import (
	"context"
	"errors"
)

// ErrEmptyWord is returned when a lookup is requested for an empty word.
var ErrEmptyWord = errors.New("phonemes: empty word")

// Unit is one sounding-out step of a word.
type Unit struct {
	// Grapheme is the exact letter span as written, used for highlighting.
	Grapheme string `json:"grapheme"`

	// Sound is the speakable rendition of the unit fed to synthesis. Often
	// equal to Grapheme but differs for silent letters and digraphs.
	Sound string `json:"sound"`
}

// Provider is the abstraction over any grapheme-to-phoneme backend.
type Provider interface {
	// Split breaks word into its ordered phonetic units. The concatenated
	// Grapheme fields always reproduce the input word so that highlight
	// spans line up. Returns ErrEmptyWord for empty input.
	Split(ctx context.Context, word string) ([]Unit, error)
}
