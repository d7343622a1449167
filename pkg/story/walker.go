package story

// Walker is a monotonic cursor over a story's words and sentences. Word and
// sentence positions advance independently so switching practice granularity
// can reset one without touching the other. Indices are always clamped to the
// story bounds; a Walker over an empty story yields empty targets and reports
// every position as last.
type Walker struct {
	words     []string
	sentences []string

	wordIdx     int
	sentenceIdx int
}

// NewWalker builds a Walker positioned at the start of s.
func NewWalker(s Story) *Walker {
	return &Walker{
		words:     s.Words(),
		sentences: s.Sentences(),
	}
}

// WordIndex returns the current word position.
func (w *Walker) WordIndex() int { return w.wordIdx }

// SentenceIndex returns the current sentence position.
func (w *Walker) SentenceIndex() int { return w.sentenceIdx }

// WordCount returns the total number of words.
func (w *Walker) WordCount() int { return len(w.words) }

// SentenceCount returns the total number of sentences.
func (w *Walker) SentenceCount() int { return len(w.sentences) }

// CurrentWord returns the word under the cursor, or "" for an empty story.
func (w *Walker) CurrentWord() string {
	if len(w.words) == 0 {
		return ""
	}
	return w.words[w.wordIdx]
}

// CurrentSentence returns the sentence under the cursor, or "" for an empty
// story.
func (w *Walker) CurrentSentence() string {
	if len(w.sentences) == 0 {
		return ""
	}
	return w.sentences[w.sentenceIdx]
}

// WordAt returns the word at index i, clamped into range.
func (w *Walker) WordAt(i int) string {
	if len(w.words) == 0 {
		return ""
	}
	return w.words[clamp(i, len(w.words))]
}

// SentenceAt returns the sentence at index i, clamped into range.
func (w *Walker) SentenceAt(i int) string {
	if len(w.sentences) == 0 {
		return ""
	}
	return w.sentences[clamp(i, len(w.sentences))]
}

// OnLastWord reports whether the word cursor sits on the final word. True for
// an empty story.
func (w *Walker) OnLastWord() bool {
	return w.wordIdx >= len(w.words)-1
}

// OnLastSentence reports whether the sentence cursor sits on the final
// sentence. True for an empty story.
func (w *Walker) OnLastSentence() bool {
	return w.sentenceIdx >= len(w.sentences)-1
}

// AdvanceWord moves the word cursor forward one position and reports whether
// it actually moved. The cursor never passes the final word.
func (w *Walker) AdvanceWord() bool {
	if w.OnLastWord() {
		return false
	}
	w.wordIdx++
	return true
}

// AdvanceSentence moves the sentence cursor forward one position and reports
// whether it actually moved.
func (w *Walker) AdvanceSentence() bool {
	if w.OnLastSentence() {
		return false
	}
	w.sentenceIdx++
	return true
}

// SeekWord moves the word cursor to i, clamped into range.
func (w *Walker) SeekWord(i int) {
	if len(w.words) == 0 {
		w.wordIdx = 0
		return
	}
	w.wordIdx = clamp(i, len(w.words))
}

// Reset moves both cursors back to the start of the story.
func (w *Walker) Reset() {
	w.wordIdx = 0
	w.sentenceIdx = 0
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
