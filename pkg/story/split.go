package story

import "strings"

// abbreviations that end with a period but do not end a sentence. Titles and
// common address abbreviations cover what story text realistically contains.
var abbreviations = map[string]bool{
	"mr.":   true,
	"mrs.":  true,
	"ms.":   true,
	"dr.":   true,
	"st.":   true,
	"mt.":   true,
	"prof.": true,
	"jr.":   true,
	"sr.":   true,
	"vs.":   true,
	"etc.":  true,
}

// SplitSentences splits text into sentences on '.', '!' and '?'. Terminators
// stay attached to their sentence, runs of terminators ("?!", "...") are kept
// together, and a period that completes a known abbreviation ("Dr.", "Mt.")
// does not split. Text after the final terminator becomes a trailing sentence
// of its own so unterminated endings are never lost.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var (
		sentences []string
		start     int
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Swallow the full terminator run.
		for i+1 < len(runes) && isTerminator(runes[i+1]) {
			i++
		}
		if r == '.' && endsWithAbbreviation(runes[start:i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// endsWithAbbreviation reports whether the last whitespace-delimited token of
// the slice is a known abbreviation.
func endsWithAbbreviation(runes []rune) bool {
	fields := strings.Fields(string(runes))
	if len(fields) == 0 {
		return false
	}
	return abbreviations[strings.ToLower(fields[len(fields)-1])]
}
