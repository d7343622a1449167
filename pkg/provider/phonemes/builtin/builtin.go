// Package builtin provides a rule-based phonemes.Provider that needs no
// external service.
//
// It is a greedy longest-match chunker over common English digraphs and
// vowel teams. That is crude compared to a dictionary-backed G2P, but for
// the early-reader vocabulary this application targets the output is
// accurate enough to drill with, and it works offline.
package builtin

import (
	"context"
	"strings"

	"github.com/readalong/readalong/pkg/provider/phonemes"
	"github.com/readalong/readalong/pkg/textnorm"
)

// Compile-time assertion that Provider implements phonemes.Provider.
var _ phonemes.Provider = (*Provider)(nil)

// multigraphs maps letter clusters that are read as one sound. Longest
// candidates are tried first during chunking.
var multigraphs = map[string]string{
	"tch": "ch",
	"igh": "eye",
	"ch":  "ch",
	"sh":  "sh",
	"th":  "th",
	"ph":  "f",
	"wh":  "w",
	"ck":  "k",
	"ng":  "ng",
	"qu":  "kw",
	"ai":  "ay",
	"ay":  "ay",
	"ee":  "ee",
	"ea":  "ee",
	"oa":  "oh",
	"oo":  "oo",
	"ou":  "ow",
	"ow":  "ow",
	"oi":  "oy",
	"oy":  "oy",
	"au":  "aw",
	"aw":  "aw",
	"ar":  "ar",
	"er":  "er",
	"ir":  "er",
	"or":  "or",
	"ur":  "er",
}

// maxChunk is the longest key length in multigraphs.
const maxChunk = 3

// Provider implements phonemes.Provider with static English chunking rules.
type Provider struct{}

// New returns a ready-to-use Provider.
func New() *Provider { return &Provider{} }

// Split implements phonemes.Provider. The word is normalised (lower-cased,
// punctuation stripped) before chunking; Grapheme spans cover the normalised
// form.
func (p *Provider) Split(_ context.Context, word string) ([]phonemes.Unit, error) {
	w := textnorm.Normalize(word)
	if w == "" {
		return nil, phonemes.ErrEmptyWord
	}

	var units []phonemes.Unit
	runes := []rune(w)
	for i := 0; i < len(runes); {
		matched := false
		for size := maxChunk; size >= 2; size-- {
			if i+size > len(runes) {
				continue
			}
			chunk := string(runes[i : i+size])
			if sound, ok := multigraphs[chunk]; ok {
				units = append(units, phonemes.Unit{Grapheme: chunk, Sound: sound})
				i += size
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		g := string(runes[i])
		units = append(units, phonemes.Unit{Grapheme: g, Sound: letterSound(g)})
		i++
	}

	// Silent final e: merge into the previous unit's grapheme so the
	// highlight covers it, but keep the previous sound.
	if n := len(units); n >= 2 && units[n-1].Grapheme == "e" && !isVowel(units[n-2].Grapheme) {
		units[n-2].Grapheme += "e"
		units = units[:n-1]
	}

	return units, nil
}

func isVowel(g string) bool {
	return len(g) > 0 && strings.ContainsRune("aeiou", rune(g[0]))
}

// letterSound maps a single letter to its spoken sound. Letters read as
// themselves fall through.
func letterSound(g string) string {
	switch g {
	case "c":
		return "k"
	case "x":
		return "ks"
	case "y":
		return "yuh"
	default:
		return g
	}
}
