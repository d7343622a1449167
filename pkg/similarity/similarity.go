// Package similarity scores how closely a spoken transcript matches target
// text. Scores are percentages in [0, 100] computed from Levenshtein edit
// distance over normalised strings, with an optional phonetic assist for
// vocabulary hints.
package similarity

import (
	"github.com/antzucaro/matchr"

	"github.com/readalong/readalong/pkg/textnorm"
)

// DefaultThreshold is the acceptance score for a reading attempt. Attempts at
// or above it count as a successful read.
const DefaultThreshold = 65.0

// Score returns the percentage similarity of two raw strings after
// normalisation: 100 means identical, 0 means nothing in common.
//
// The score is (1 - distance/maxLen) * 100 where distance is the Levenshtein
// edit distance and maxLen the longer normalised length. Two strings that
// both normalise to empty are identical by definition and score 100.
func Score(target, attempt string) float64 {
	a := textnorm.Normalize(target)
	b := textnorm.Normalize(attempt)
	return scoreNormalized(a, b)
}

// ScoreNormalized is like Score but assumes both inputs are already
// normalised. Useful when the caller normalises once and scores many times.
func ScoreNormalized(target, attempt string) float64 {
	return scoreNormalized(target, attempt)
}

func scoreNormalized(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 100
	}
	d := matchr.Levenshtein(a, b)
	if d > maxLen {
		// Defensive clamp; rune-wise distance never exceeds the longer length.
		d = maxLen
	}
	return (1 - float64(d)/float64(maxLen)) * 100
}

// Accepted reports whether attempt matches target at or above threshold.
func Accepted(target, attempt string, threshold float64) bool {
	return Score(target, attempt) >= threshold
}

// SoundsAlike reports whether two words share a Double Metaphone encoding.
// It backstops the edit-distance score for short words where a single
// misheard letter swings the percentage wildly ("there"/"their").
func SoundsAlike(a, b string) bool {
	a = textnorm.Normalize(a)
	b = textnorm.Normalize(b)
	if a == "" || b == "" {
		return false
	}
	p1, s1 := matchr.DoubleMetaphone(a)
	p2, s2 := matchr.DoubleMetaphone(b)
	if p1 != "" && (p1 == p2 || p1 == s2) {
		return true
	}
	return s1 != "" && (s1 == p2 || s1 == s2)
}
