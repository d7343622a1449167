package reading

import "github.com/readalong/readalong/pkg/provider/phonemes"

// Event is an input to the transition function. Events come from learner
// actions (start, finish turn, mode change) and from adapter completions
// (playback ended, transcript arrived, feedback timer elapsed).
type Event interface {
	isEvent()
}

type (
	// EventStartReading is the learner pressing "Start Reading". Only
	// meaningful in StateInitial and StateFinished; inert elsewhere so rapid
	// double-presses cannot restart a turn in flight.
	EventStartReading struct{}

	// EventBeginTurn starts the next turn from StateIdle. The controller
	// dispatches it automatically whenever the session lands in StateIdle.
	EventBeginTurn struct{}

	// EventSpeechEnded is the playback completion callback.
	EventSpeechEnded struct{}

	// EventFinishTurn is the learner's explicit "I'm done" action.
	EventFinishTurn struct{}

	// EventCaptureFailed reports that the microphone could not be acquired.
	EventCaptureFailed struct{}

	// EventTranscribed carries the transcription result. An empty Text means
	// no speech was detected (or the call timed out); that is an attempt that
	// scores against the target like any other, not an error.
	EventTranscribed struct{ Text string }

	// EventScored carries the similarity score of the attempt.
	EventScored struct{ Score float64 }

	// EventFeedbackElapsed fires when the feedback display window has passed.
	EventFeedbackElapsed struct{}

	// EventReadAgain restarts a finished story from the beginning.
	EventReadAgain struct{}

	// EventSetMode switches the practice granularity, resetting the session.
	EventSetMode struct{ Mode Mode }

	// EventWordSelected begins a phoneme drill on the given word.
	EventWordSelected struct {
		Word  string
		Units []phonemes.Unit
	}

	// EventDrillHighlight advances the phoneme highlight to Index, or past
	// the end (Index == len(units)) when the drill playback has finished.
	EventDrillHighlight struct{ Index int }

	// EventQuizAnswered records an answered quiz question.
	EventQuizAnswered struct{ Correct bool }

	// EventStop is navigation away from the story; the session returns to
	// StateInitial and all audio stops.
	EventStop struct{}
)

func (EventStartReading) isEvent()    {}
func (EventBeginTurn) isEvent()       {}
func (EventSpeechEnded) isEvent()     {}
func (EventFinishTurn) isEvent()      {}
func (EventCaptureFailed) isEvent()   {}
func (EventTranscribed) isEvent()     {}
func (EventScored) isEvent()          {}
func (EventFeedbackElapsed) isEvent() {}
func (EventReadAgain) isEvent()       {}
func (EventSetMode) isEvent()         {}
func (EventWordSelected) isEvent()    {}
func (EventDrillHighlight) isEvent()  {}
func (EventQuizAnswered) isEvent()    {}
func (EventStop) isEvent()            {}

// EffectKind names the side effect the controller must perform after a
// transition. Effects reference the session's own cursor; the controller
// resolves the actual target text.
type EffectKind int

const (
	// EffectNone requires no action.
	EffectNone EffectKind = iota

	// EffectSpeak plays the current target text.
	EffectSpeak

	// EffectListen starts microphone capture.
	EffectListen

	// EffectTranscribe stops capture and transcribes the recording.
	EffectTranscribe

	// EffectEvaluate scores Transcript against the current target.
	EffectEvaluate

	// EffectFeedback shows Success/failure feedback and schedules
	// EventFeedbackElapsed after the configured delay.
	EffectFeedback

	// EffectDrill speaks DrillWord slowly and schedules highlight events
	// evenly across the clip duration.
	EffectDrill

	// EffectStopAudio cancels any in-flight playback and capture.
	EffectStopAudio
)

// Effect is the side effect requested by a transition.
type Effect struct {
	Kind       EffectKind
	Transcript string // EffectEvaluate
	Success    bool   // EffectFeedback
}

// Transition applies ev to s and returns the next session plus the effect the
// controller must run. It is pure: no I/O, no clock, no randomness. Events
// that are not legal in the current state leave the session unchanged with
// EffectNone, which is what makes re-entrant triggers safe.
func Transition(s Session, ev Event) (Session, Effect) {
	switch ev := ev.(type) {
	case EventStartReading:
		if s.State != StateInitial && s.State != StateFinished {
			return s, Effect{}
		}
		return s.reset(StateIdle), Effect{}

	case EventBeginTurn:
		if s.State != StateIdle || s.Mode == ModeQuiz || s.Mode == ModePhoneme {
			return s, Effect{}
		}
		s.State = StateSpeaking
		s.Feedback = FeedbackNone
		return s, Effect{Kind: EffectSpeak}

	case EventSpeechEnded:
		if s.State != StateSpeaking {
			return s, Effect{}
		}
		s.State = StateListening
		return s, Effect{Kind: EffectListen}

	case EventCaptureFailed:
		if s.State != StateListening {
			return s, Effect{}
		}
		next := s.reset(StateInitial)
		next.MicDenied = true
		return next, Effect{Kind: EffectStopAudio}

	case EventFinishTurn:
		if s.State != StateListening {
			return s, Effect{}
		}
		s.State = StateTranscribing
		return s, Effect{Kind: EffectTranscribe}

	case EventTranscribed:
		if s.State != StateTranscribing {
			return s, Effect{}
		}
		s.State = StateEvaluating
		return s, Effect{Kind: EffectEvaluate, Transcript: ev.Text}

	case EventScored:
		if s.State != StateEvaluating {
			return s, Effect{}
		}
		s.LastScore = ev.Score
		success := ev.Score >= s.Threshold
		if success {
			s.Feedback = FeedbackCorrect
		} else {
			s.Feedback = FeedbackIncorrect
		}
		return s, Effect{Kind: EffectFeedback, Success: success}

	case EventFeedbackElapsed:
		if s.State != StateEvaluating {
			return s, Effect{}
		}
		if s.Feedback != FeedbackCorrect {
			// Below threshold: same item again, cursor untouched.
			s.State = StateIdle
			return s, Effect{}
		}
		if s.onLastItem() {
			s.State = StateFinished
			return s, Effect{}
		}
		switch s.Mode {
		case ModeSentence:
			s.SentenceIndex++
		default:
			s.WordIndex++
		}
		s.State = StateIdle
		return s, Effect{}

	case EventReadAgain:
		if s.State != StateFinished {
			return s, Effect{}
		}
		return s.reset(StateIdle), Effect{}

	case EventSetMode:
		if !ev.Mode.Valid() || ev.Mode == s.Mode {
			return s, Effect{}
		}
		next := s.reset(StateInitial)
		next.Mode = ev.Mode
		return next, Effect{Kind: EffectStopAudio}

	case EventWordSelected:
		if s.Mode != ModePhoneme || s.State == StateFinished {
			return s, Effect{}
		}
		s.State = StateSpeaking
		s.DrillWord = ev.Word
		s.DrillUnits = ev.Units
		s.DrillHighlight = -1
		// Selecting a new word invalidates the previous drill's schedule.
		s.Epoch++
		return s, Effect{Kind: EffectDrill}

	case EventDrillHighlight:
		if s.Mode != ModePhoneme || s.State != StateSpeaking {
			return s, Effect{}
		}
		if ev.Index >= len(s.DrillUnits) {
			// Drill playback finished.
			s.State = StateInitial
			s.DrillHighlight = -1
			return s, Effect{}
		}
		s.DrillHighlight = ev.Index
		return s, Effect{}

	case EventQuizAnswered:
		if s.Mode != ModeQuiz || s.State == StateFinished || s.QuizIndex >= s.QuizCount {
			return s, Effect{}
		}
		s.QuizIndex++
		if ev.Correct {
			s.QuizCorrect++
		}
		if s.QuizIndex >= s.QuizCount {
			s.State = StateFinished
		}
		return s, Effect{}

	case EventStop:
		return s.reset(StateInitial), Effect{Kind: EffectStopAudio}
	}

	return s, Effect{}
}
