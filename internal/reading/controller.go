package reading

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/readalong/readalong/internal/capture"
	"github.com/readalong/readalong/internal/config"
	"github.com/readalong/readalong/internal/observe"
	"github.com/readalong/readalong/internal/playback"
	"github.com/readalong/readalong/pkg/provider/phonemes"
	"github.com/readalong/readalong/pkg/provider/stt"
	"github.com/readalong/readalong/pkg/similarity"
	"github.com/readalong/readalong/pkg/story"
)

// Deps are the collaborators a Controller drives.
type Deps struct {
	Player   *playback.Player
	Recorder *capture.Recorder
	STT      stt.Provider
	Phonemes phonemes.Provider
}

// Snapshot is the observable session state pushed to listeners after every
// applied event.
type Snapshot struct {
	Mode          Mode     `json:"mode"`
	State         string   `json:"state"`
	WordIndex     int      `json:"word_index"`
	SentenceIndex int      `json:"sentence_index"`
	Target        string   `json:"target"`
	Feedback      string   `json:"feedback"`
	LastScore     float64  `json:"last_score"`
	MicDenied     bool     `json:"mic_denied"`
	DrillWord     string   `json:"drill_word,omitempty"`
	DrillUnits    []string `json:"drill_units,omitempty"`
	DrillIndex    int      `json:"drill_index"`
	QuizIndex     int      `json:"quiz_index"`
	QuizCorrect   int      `json:"quiz_correct"`
	Finished      bool     `json:"finished"`
}

// Controller owns one learner's reading session: it holds the story walker
// and the session value, applies events through [Transition], and executes
// the resulting effects against the adapters. All asynchronous completions
// (playback end, transcription result, feedback timer) re-enter through
// dispatch and carry the epoch they were issued under, so completions from
// before a reset are dropped.
type Controller struct {
	st     story.Story
	deps   Deps
	cfg    config.ReadingConfig
	log    *slog.Logger
	notify func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	session Session
	walker  *story.Walker
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotify sets a listener invoked with a snapshot after every state
// change. The listener runs on the dispatching goroutine and must not call
// back into the controller.
func WithNotify(fn func(Snapshot)) Option {
	return func(c *Controller) { c.notify = fn }
}

// NewController creates a controller for st starting in Sentence mode.
func NewController(st story.Story, deps Deps, cfg config.ReadingConfig, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		st:      st,
		deps:    deps,
		cfg:     cfg,
		log:     slog.Default().With("component", "reading", "story", st.ID.String()),
		ctx:     ctx,
		cancel:  cancel,
		session: NewSession(st, ModeSentence, cfg.AcceptThreshold),
		walker:  story.NewWalker(st),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close stops all audio and invalidates outstanding completions.
func (c *Controller) Close() {
	c.dispatch(EventStop{})
	c.cancel()
}

// StartReading begins (or restarts) reading from the first item.
func (c *Controller) StartReading() { c.dispatch(EventStartReading{}) }

// FinishTurn is the learner's "I'm done" action ending the capture phase.
func (c *Controller) FinishTurn() { c.dispatch(EventFinishTurn{}) }

// ReadAgain restarts a finished story.
func (c *Controller) ReadAgain() { c.dispatch(EventReadAgain{}) }

// SetMode switches practice granularity, cancelling any turn in flight.
func (c *Controller) SetMode(mode Mode) { c.dispatch(EventSetMode{Mode: mode}) }

// SelectWord starts a phoneme drill on the word at global index i. Outside
// Phoneme mode it does nothing.
func (c *Controller) SelectWord(i int) {
	c.mu.Lock()
	if c.session.Mode != ModePhoneme {
		c.mu.Unlock()
		return
	}
	word := c.walker.WordAt(i)
	c.mu.Unlock()
	if word == "" {
		return
	}

	units, err := c.deps.Phonemes.Split(c.ctx, word)
	if err != nil {
		c.log.Warn("phoneme split failed", "word", word, "error", err)
		observe.DefaultMetrics().RecordProviderError(c.ctx, "phonemes", "split")
		return
	}
	c.dispatch(EventWordSelected{Word: word, Units: units})
}

// AnswerQuiz records the learner's choice for the current quiz question.
func (c *Controller) AnswerQuiz(choice int) {
	c.mu.Lock()
	idx := c.session.QuizIndex
	c.mu.Unlock()
	if idx >= len(c.st.Quiz) {
		return
	}
	correct := c.st.Quiz[idx].CorrectIndex == choice
	c.dispatch(EventQuizAnswered{Correct: correct})
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := c.session
	snap := Snapshot{
		Mode:          s.Mode,
		State:         s.State.String(),
		WordIndex:     s.WordIndex,
		SentenceIndex: s.SentenceIndex,
		Target:        c.targetLocked(),
		Feedback:      s.Feedback.String(),
		LastScore:     s.LastScore,
		MicDenied:     s.MicDenied,
		DrillWord:     s.DrillWord,
		DrillIndex:    s.DrillHighlight,
		QuizIndex:     s.QuizIndex,
		QuizCorrect:   s.QuizCorrect,
		Finished:      s.State == StateFinished,
	}
	for _, u := range s.DrillUnits {
		snap.DrillUnits = append(snap.DrillUnits, u.Grapheme)
	}
	return snap
}

// targetLocked resolves the current target text for the active mode.
func (c *Controller) targetLocked() string {
	switch c.session.Mode {
	case ModeSentence:
		return c.walker.SentenceAt(c.session.SentenceIndex)
	case ModeQuiz:
		return ""
	default:
		return c.walker.WordAt(c.session.WordIndex)
	}
}

// dispatch applies ev and runs the resulting effect. It loops because some
// transitions land in StateIdle, which immediately begins the next turn.
func (c *Controller) dispatch(ev Event) {
	for {
		c.mu.Lock()
		before := c.session.State
		next, eff := Transition(c.session, ev)
		c.session = next
		epoch := next.Epoch
		target := c.targetLocked()
		snap := c.snapshotLocked()
		c.mu.Unlock()

		if next.State != before {
			c.log.Debug("state change", "from", before.String(), "to", next.State.String())
		}
		if c.notify != nil {
			c.notify(snap)
		}

		c.runEffect(eff, epoch, target)

		// Auto-begin the next turn once idle.
		if next.State == StateIdle && next.Mode != ModeQuiz && next.Mode != ModePhoneme {
			ev = EventBeginTurn{}
			continue
		}
		return
	}
}

// dispatchIfCurrent applies ev only when the session epoch still matches the
// one the triggering effect was issued under.
func (c *Controller) dispatchIfCurrent(epoch uint64, ev Event) {
	c.mu.Lock()
	stale := c.session.Epoch != epoch
	c.mu.Unlock()
	if stale {
		c.log.Debug("dropping stale completion", "epoch", epoch)
		return
	}
	c.dispatch(ev)
}

func (c *Controller) runEffect(eff Effect, epoch uint64, target string) {
	switch eff.Kind {
	case EffectNone:

	case EffectSpeak:
		c.speak(epoch, target)

	case EffectListen:
		c.listen(epoch)

	case EffectTranscribe:
		go c.transcribe(epoch)

	case EffectEvaluate:
		c.evaluate(epoch, target, eff.Transcript)

	case EffectFeedback:
		delay := time.Duration(c.cfg.FailureFeedbackMs) * time.Millisecond
		if eff.Success {
			delay = time.Duration(c.cfg.SuccessFeedbackMs) * time.Millisecond
		}
		time.AfterFunc(delay, func() {
			c.dispatchIfCurrent(epoch, EventFeedbackElapsed{})
		})

	case EffectDrill:
		c.drill(epoch)

	case EffectStopAudio:
		c.deps.Player.Stop()
		if rec, err := c.deps.Recorder.Stop(c.ctx); err != nil {
			c.log.Warn("stopping capture", "error", err)
		} else if rec != nil {
			c.log.Debug("discarded capture on reset", "duration", rec.Duration())
		}
	}
}

func (c *Controller) speak(epoch uint64, target string) {
	c.mu.Lock()
	mode := c.session.Mode
	c.mu.Unlock()

	req := playback.Request{
		Text:       target,
		Voice:      c.cfg.Voice,
		SingleWord: mode == ModeWord,
	}
	if mode == ModeWord {
		req.Rate = c.cfg.SlowRate
	}
	c.deps.Player.Speak(c.ctx, req, func() {
		c.dispatchIfCurrent(epoch, EventSpeechEnded{})
	})
}

func (c *Controller) listen(epoch uint64) {
	if err := c.deps.Recorder.Start(c.ctx); err != nil {
		if errors.Is(err, capture.ErrPermissionDenied) {
			c.dispatchIfCurrent(epoch, EventCaptureFailed{})
			return
		}
		c.log.Warn("starting capture", "error", err)
		c.dispatchIfCurrent(epoch, EventCaptureFailed{})
	}
}

// transcribe stops the recorder and runs speech-to-text with the configured
// timeout. Timeouts and failures become an empty transcript, which the
// evaluator scores like any other attempt.
func (c *Controller) transcribe(epoch uint64) {
	rec, err := c.deps.Recorder.Stop(c.ctx)
	if err != nil || rec == nil || len(rec.Samples) == 0 {
		if err != nil {
			c.log.Warn("stopping capture", "error", err)
		}
		c.dispatchIfCurrent(epoch, EventTranscribed{})
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, time.Duration(c.cfg.TranscribeTimeoutMs)*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := c.deps.STT.Transcribe(ctx, stt.Request{
		Audio:    rec.WAV(),
		Language: c.cfg.Language,
	})
	observe.DefaultMetrics().TranscriptionDuration.Record(c.ctx, time.Since(start).Seconds())
	if err != nil {
		c.log.Warn("transcription failed", "error", err)
		observe.DefaultMetrics().RecordProviderError(c.ctx, "stt", "transcribe")
		c.dispatchIfCurrent(epoch, EventTranscribed{})
		return
	}
	c.dispatchIfCurrent(epoch, EventTranscribed{Text: res.Text})
}

func (c *Controller) evaluate(epoch uint64, target, transcript string) {
	score := similarity.Score(target, transcript)

	c.mu.Lock()
	mode := string(c.session.Mode)
	c.mu.Unlock()
	outcome := "failure"
	if score >= c.cfg.AcceptThreshold {
		outcome = "success"
	}
	observe.DefaultMetrics().RecordTurnOutcome(c.ctx, mode, outcome, score)
	c.log.Info("attempt evaluated",
		"target", target, "transcript", transcript, "score", score, "outcome", outcome)

	c.dispatchIfCurrent(epoch, EventScored{Score: score})
}

// drill speaks the selected word slowly and advances the highlight on an even
// schedule across the clip duration.
func (c *Controller) drill(epoch uint64) {
	c.mu.Lock()
	word := c.session.DrillWord
	units := len(c.session.DrillUnits)
	c.mu.Unlock()
	if units == 0 {
		c.dispatchIfCurrent(epoch, EventDrillHighlight{Index: 0})
		return
	}

	dur := c.deps.Player.Speak(c.ctx, playback.Request{
		Text:       word,
		Voice:      c.cfg.Voice,
		SingleWord: true,
		Rate:       c.cfg.SlowRate,
	}, func() {
		c.dispatchIfCurrent(epoch, EventDrillHighlight{Index: units})
	})

	step := dur / time.Duration(units)
	for i := range units {
		time.AfterFunc(step*time.Duration(i), func() {
			c.dispatchIfCurrent(epoch, EventDrillHighlight{Index: i})
		})
	}
}
