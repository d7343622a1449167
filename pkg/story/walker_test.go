package story

import "testing"

func testStory() Story {
	return Story{
		Title: "The Pond",
		Text:  "A frog jumped in. Splash went the water! Everyone laughed.",
	}
}

func TestWalkerWordCursor(t *testing.T) {
	t.Parallel()

	w := NewWalker(testStory())
	if got := w.CurrentWord(); got != "A" {
		t.Fatalf("CurrentWord() at start = %q, want %q", got, "A")
	}

	// Advance through every word; index must rise by exactly one each time.
	prev := w.WordIndex()
	for w.AdvanceWord() {
		if w.WordIndex() != prev+1 {
			t.Fatalf("word index jumped from %d to %d", prev, w.WordIndex())
		}
		prev = w.WordIndex()
	}

	if !w.OnLastWord() {
		t.Error("cursor should sit on the last word after full walk")
	}
	if got := w.CurrentWord(); got != "laughed." {
		t.Errorf("final word = %q, want %q", got, "laughed.")
	}
	// Further advances are refused and do not move the cursor.
	if w.AdvanceWord() {
		t.Error("AdvanceWord() past the end reported movement")
	}
	if w.WordIndex() != w.WordCount()-1 {
		t.Errorf("word index %d moved past final %d", w.WordIndex(), w.WordCount()-1)
	}
}

func TestWalkerSentenceCursor(t *testing.T) {
	t.Parallel()

	w := NewWalker(testStory())
	if got := w.CurrentSentence(); got != "A frog jumped in." {
		t.Fatalf("CurrentSentence() at start = %q", got)
	}
	if w.OnLastSentence() {
		t.Fatal("OnLastSentence() true at start of a three-sentence story")
	}

	w.AdvanceSentence()
	w.AdvanceSentence()
	if !w.OnLastSentence() {
		t.Error("OnLastSentence() false on the final sentence")
	}
	if w.AdvanceSentence() {
		t.Error("AdvanceSentence() past the end reported movement")
	}
}

func TestWalkerCursorsIndependent(t *testing.T) {
	t.Parallel()

	w := NewWalker(testStory())
	w.AdvanceWord()
	w.AdvanceWord()
	if w.SentenceIndex() != 0 {
		t.Errorf("advancing words moved sentence cursor to %d", w.SentenceIndex())
	}
	w.AdvanceSentence()
	if w.WordIndex() != 2 {
		t.Errorf("advancing sentence moved word cursor to %d", w.WordIndex())
	}
}

func TestWalkerSeekClamped(t *testing.T) {
	t.Parallel()

	w := NewWalker(testStory())
	w.SeekWord(-5)
	if w.WordIndex() != 0 {
		t.Errorf("SeekWord(-5) left index %d", w.WordIndex())
	}
	w.SeekWord(9999)
	if w.WordIndex() != w.WordCount()-1 {
		t.Errorf("SeekWord(9999) left index %d, want %d", w.WordIndex(), w.WordCount()-1)
	}
}

func TestWalkerEmptyStory(t *testing.T) {
	t.Parallel()

	w := NewWalker(Story{})
	if got := w.CurrentWord(); got != "" {
		t.Errorf("CurrentWord() on empty story = %q", got)
	}
	if got := w.CurrentSentence(); got != "" {
		t.Errorf("CurrentSentence() on empty story = %q", got)
	}
	if !w.OnLastWord() || !w.OnLastSentence() {
		t.Error("empty story should report last word and last sentence")
	}
	if w.AdvanceWord() || w.AdvanceSentence() {
		t.Error("empty story cursors should not move")
	}
	w.SeekWord(3)
	if w.WordIndex() != 0 {
		t.Errorf("SeekWord on empty story left index %d", w.WordIndex())
	}
}

func TestWalkerReset(t *testing.T) {
	t.Parallel()

	w := NewWalker(testStory())
	w.AdvanceWord()
	w.AdvanceSentence()
	w.Reset()
	if w.WordIndex() != 0 || w.SentenceIndex() != 0 {
		t.Errorf("Reset left cursors at word=%d sentence=%d", w.WordIndex(), w.SentenceIndex())
	}
}
