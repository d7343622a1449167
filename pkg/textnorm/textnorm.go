// Package textnorm canonicalises text before spoken-word comparison.
//
// Children's story text carries capitalisation and punctuation that a speech
// transcript never reproduces. Normalize collapses both sides into the same
// shape so the similarity scorer compares what was actually said against what
// was actually meant.
package textnorm

import "strings"

// punctuation lists the characters stripped during normalisation. Apostrophes
// are included because transcription engines are inconsistent about
// contractions ("don't" vs "dont"). Hyphens stay.
const punctuation = `.,!?;:"'`

// Normalize trims surrounding whitespace, lower-cases the input and removes
// sentence punctuation. It is pure and never fails; empty input yields the
// empty string.
func Normalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(punctuation, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeWords splits s on whitespace and normalises each word, dropping
// words that normalise to nothing (e.g. a stray "!"). Useful when a sentence
// target has to be compared word by word.
func NormalizeWords(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if n := Normalize(f); n != "" {
			out = append(out, n)
		}
	}
	return out
}
