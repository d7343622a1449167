// Package reading implements the turn-taking core of a practice session: the
// application speaks the current target, the learner reads it back, the
// attempt is transcribed and scored, and the cursor advances on success.
//
// The package is split into a pure transition function over an immutable
// [Session] value and a [Controller] that executes the resulting effects
// against the playback, capture and transcription adapters. The transition
// function performs no I/O, which keeps every flow rule unit-testable without
// audio hardware.
package reading

import (
	"fmt"

	"github.com/readalong/readalong/pkg/provider/phonemes"
	"github.com/readalong/readalong/pkg/story"
)

// State is the phase of the current reading turn.
type State int

const (
	StateInitial State = iota
	StateIdle
	StateSpeaking
	StateListening
	StateTranscribing
	StateEvaluating
	StateFinished
)

// String returns the lowercase wire name of the state.
func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StateListening:
		return "listening"
	case StateTranscribing:
		return "transcribing"
	case StateEvaluating:
		return "evaluating"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Mode is the practice granularity.
type Mode string

const (
	ModeWord     Mode = "word"
	ModeSentence Mode = "sentence"
	ModePhoneme  Mode = "phoneme"
	ModeQuiz     Mode = "quiz"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeWord, ModeSentence, ModePhoneme, ModeQuiz:
		return true
	}
	return false
}

// Feedback is the outcome of the most recent evaluation.
type Feedback int

const (
	FeedbackNone Feedback = iota
	FeedbackCorrect
	FeedbackIncorrect
)

// String returns the lowercase wire name of the feedback value.
func (f Feedback) String() string {
	switch f {
	case FeedbackCorrect:
		return "correct"
	case FeedbackIncorrect:
		return "incorrect"
	default:
		return "none"
	}
}

// Session is the transient state of one reading session. It is a value type:
// the transition function returns a new Session rather than mutating in
// place. Nothing here is persisted.
type Session struct {
	Mode  Mode
	State State

	// WordIndex is the global word cursor, SentenceIndex the sentence cursor.
	// Only the cursor matching Mode advances; switching modes resets both.
	WordIndex     int
	SentenceIndex int

	// Totals, fixed at session creation from the story shape.
	WordCount     int
	SentenceCount int
	QuizCount     int

	// Threshold is the minimum similarity score accepted as a correct read.
	Threshold float64

	Feedback  Feedback
	LastScore float64

	// MicDenied is set once microphone permission is refused; it never
	// clears within the session.
	MicDenied bool

	// Phoneme drill state, meaningful only in ModePhoneme.
	DrillWord      string
	DrillUnits     []phonemes.Unit
	DrillHighlight int

	// Quiz progress, meaningful only in ModeQuiz.
	QuizIndex   int
	QuizCorrect int

	// Epoch increments on every reset so effects issued before the reset can
	// be recognised as stale and dropped.
	Epoch uint64
}

// NewSession creates a session over st in the given mode, positioned at the
// start of the story.
func NewSession(st story.Story, mode Mode, threshold float64) Session {
	return Session{
		Mode:           mode,
		State:          StateInitial,
		WordCount:      len(st.Words()),
		SentenceCount:  len(st.Sentences()),
		QuizCount:      len(st.Quiz),
		Threshold:      threshold,
		DrillHighlight: -1,
	}
}

// onLastItem reports whether the active cursor sits on the final item of its
// sequence. True when the sequence is empty.
func (s Session) onLastItem() bool {
	switch s.Mode {
	case ModeSentence:
		return s.SentenceIndex >= s.SentenceCount-1
	default:
		return s.WordIndex >= s.WordCount-1
	}
}

// reset returns s rewound to the start: cursors zeroed, turn state cleared,
// epoch bumped. Mode and the microphone-denial flag survive.
func (s Session) reset(state State) Session {
	return Session{
		Mode:           s.Mode,
		State:          state,
		WordCount:      s.WordCount,
		SentenceCount:  s.SentenceCount,
		QuizCount:      s.QuizCount,
		Threshold:      s.Threshold,
		MicDenied:      s.MicDenied,
		DrillHighlight: -1,
		Epoch:          s.Epoch + 1,
	}
}
