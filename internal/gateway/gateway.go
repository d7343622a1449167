// Package gateway bridges browser clients to reading sessions over a
// WebSocket. Learner actions arrive as JSON text frames and microphone audio
// as binary PCM frames; the server pushes state snapshots and synthesised
// speech back the same way.
package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/readalong/readalong/internal/capture"
	"github.com/readalong/readalong/internal/observe"
	"github.com/readalong/readalong/internal/playback"
	"github.com/readalong/readalong/internal/reading"
	"github.com/readalong/readalong/pkg/audioproc"
	"github.com/readalong/readalong/pkg/provider/tts"
)

// clientEvent is one learner action sent by the client.
type clientEvent struct {
	// Type is one of: hello, start_reading, finish_turn, set_mode,
	// read_again, select_word, answer_quiz, mic_denied.
	Type string `json:"type"`

	// SampleRate accompanies hello and announces the client's capture rate.
	SampleRate int `json:"sample_rate,omitempty"`

	// Mode accompanies set_mode.
	Mode string `json:"mode,omitempty"`

	// WordIndex accompanies select_word.
	WordIndex int `json:"word_index,omitempty"`

	// Choice accompanies answer_quiz.
	Choice int `json:"choice,omitempty"`
}

// serverMessage is one frame pushed to the client.
type serverMessage struct {
	Type string `json:"type"` // "state", "audio" or "error"

	State *reading.Snapshot `json:"state,omitempty"`

	// Audio is a base64 WAV clip to play, present on "audio" frames.
	Audio string `json:"audio,omitempty"`

	Message string `json:"message,omitempty"`
}

// SessionFunc builds the reading session for one accepted connection. The
// sink and source are bound to that connection; notify receives every state
// change for forwarding. The returned close function releases app-side
// resources when the connection ends.
type SessionFunc func(ctx context.Context, learnerID, storyID string,
	sink playback.Sink, source capture.Source,
	notify func(reading.Snapshot)) (*reading.Controller, func(), error)

// Handler serves the /ws endpoint.
type Handler struct {
	sessions SessionFunc
	log      *slog.Logger
}

// NewHandler creates a Handler that builds sessions with fn.
func NewHandler(fn SessionFunc) *Handler {
	return &Handler{
		sessions: fn,
		log:      slog.Default().With("component", "gateway"),
	}
}

// ServeHTTP upgrades the connection and runs the session until the client
// disconnects. The learner and story are identified by the "learner" and
// "story" query parameters.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	learnerID := r.URL.Query().Get("learner")
	storyID := r.URL.Query().Get("story")
	if learnerID == "" || storyID == "" {
		http.Error(w, "learner and story query parameters are required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("websocket accept failed", "error", err)
		return
	}

	log := h.log.With("learner", learnerID, "story", storyID,
		"correlation_id", observe.CorrelationID(r.Context()))
	log.Info("session connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Outbound frames are funnelled through one writer goroutine; the
	// snapshot listener and the playback goroutine both produce them.
	out := make(chan serverMessage, 64)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-out:
				data, err := json.Marshal(msg)
				if err != nil {
					log.Error("marshal outbound frame", "error", err)
					continue
				}
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					cancel()
					return
				}
			}
		}
	}()
	send := func(msg serverMessage) {
		select {
		case out <- msg:
		case <-ctx.Done():
		}
	}

	source := newMicSource()
	sink := playback.FuncSink(func(_ context.Context, clip tts.Clip) error {
		wav := audioproc.EncodeWAV(clip.Samples, clip.SampleRate)
		send(serverMessage{Type: "audio", Audio: base64.StdEncoding.EncodeToString(wav)})
		return nil
	})
	notify := func(s reading.Snapshot) {
		send(serverMessage{Type: "state", State: &s})
	}

	ctrl, closeSession, err := h.sessions(ctx, learnerID, storyID, sink, source, notify)
	if err != nil {
		log.Warn("session setup failed", "error", err)
		_ = conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}
	defer closeSession()
	defer ctrl.Close()

	observe.DefaultMetrics().ActiveSessions.Add(ctx, 1)
	defer observe.DefaultMetrics().ActiveSessions.Add(ctx, -1)

	// Initial snapshot so the client can render before the first action.
	notify(ctrl.Snapshot())

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			log.Info("session disconnected", "reason", err)
			return
		}
		if typ == websocket.MessageBinary {
			source.push(decodePCM16(data))
			continue
		}

		var ev clientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			send(serverMessage{Type: "error", Message: "malformed event"})
			continue
		}
		h.handleEvent(ctrl, source, send, ev)
	}
}

func (h *Handler) handleEvent(ctrl *reading.Controller, source *micSource,
	send func(serverMessage), ev clientEvent) {
	switch ev.Type {
	case "hello":
		source.setRate(ev.SampleRate)
	case "start_reading":
		ctrl.StartReading()
	case "finish_turn":
		ctrl.FinishTurn()
	case "read_again":
		ctrl.ReadAgain()
	case "set_mode":
		mode := reading.Mode(ev.Mode)
		if !mode.Valid() {
			send(serverMessage{Type: "error", Message: "unknown mode " + ev.Mode})
			return
		}
		ctrl.SetMode(mode)
	case "select_word":
		ctrl.SelectWord(ev.WordIndex)
	case "answer_quiz":
		ctrl.AnswerQuiz(ev.Choice)
	case "mic_denied":
		source.setDenied()
	default:
		send(serverMessage{Type: "error", Message: "unknown event " + ev.Type})
	}
}
