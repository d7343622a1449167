// Package mock provides a scriptable phonemes.Provider for tests.
package mock

import (
	"context"

	"github.com/readalong/readalong/pkg/provider/phonemes"
)

// Compile-time assertion that Provider implements phonemes.Provider.
var _ phonemes.Provider = (*Provider)(nil)

// Provider is a fake grapheme-to-phoneme backend. The zero value splits a
// word into one unit per rune. Set SplitFunc to script behaviour.
type Provider struct {
	SplitFunc func(ctx context.Context, word string) ([]phonemes.Unit, error)
}

// Split implements phonemes.Provider.
func (p *Provider) Split(ctx context.Context, word string) ([]phonemes.Unit, error) {
	if p.SplitFunc != nil {
		return p.SplitFunc(ctx, word)
	}
	if word == "" {
		return nil, phonemes.ErrEmptyWord
	}
	var units []phonemes.Unit
	for _, r := range word {
		units = append(units, phonemes.Unit{Grapheme: string(r), Sound: string(r)})
	}
	return units, nil
}
