package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/readalong/readalong/internal/gateway"
	"github.com/readalong/readalong/internal/observe"
	"github.com/readalong/readalong/internal/storystore"
	"github.com/readalong/readalong/pkg/provider/storygen"
	"github.com/readalong/readalong/pkg/story"
)

// routes builds the HTTP handler tree: the WebSocket gateway, the story REST
// API, Prometheus metrics and a liveness probe.
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/ws", gateway.NewHandler(a.newSession))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/stories", a.handleGenerateStory)
	mux.HandleFunc("GET /api/stories", a.handleListStories)
	mux.HandleFunc("GET /api/stories/{id}", a.handleGetStory)
	mux.HandleFunc("DELETE /api/stories/{id}", a.handleDeleteStory)
	mux.HandleFunc("PUT /api/stories/{id}/report", a.handleSaveReport)
	mux.HandleFunc("GET /api/learners/{id}/credits", a.handleGetCredits)
	mux.HandleFunc("POST /api/learners/{id}/credits", a.handleGrantCredits)

	return observe.Middleware(observe.DefaultMetrics())(mux)
}

// generateStoryRequest is the body of POST /api/stories.
type generateStoryRequest struct {
	LearnerID string           `json:"learner_id"`
	Topic     string           `json:"topic"`
	Length    story.LengthTier `json:"length,omitempty"`
	ReaderAge int              `json:"reader_age,omitempty"`
}

// storyDetail is the body of GET /api/stories/{id}: the story plus its
// report and quiz attempt, if any.
type storyDetail struct {
	story.Story
	Report     string                 `json:"report,omitempty"`
	QuizResult *storystore.QuizResult `json:"quiz_result,omitempty"`
}

func (a *App) handleGenerateStory(w http.ResponseWriter, r *http.Request) {
	var req generateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.LearnerID == "" || req.Topic == "" {
		writeError(w, http.StatusBadRequest, "learner_id and topic are required")
		return
	}

	st, err := a.stories.Generate(r.Context(), req.LearnerID, req.Topic, req.Length, req.ReaderAge)
	switch {
	case errors.Is(err, storystore.ErrNoCredits):
		writeError(w, http.StatusPaymentRequired, "no story credits remaining")
		return
	case errors.Is(err, storygen.ErrEmptyTopic):
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	case err != nil:
		slog.Error("story generation failed", "learner", req.LearnerID, "error", err)
		writeError(w, http.StatusBadGateway, "story generation failed")
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (a *App) handleListStories(w http.ResponseWriter, r *http.Request) {
	learnerID := r.URL.Query().Get("learner")
	if learnerID == "" {
		writeError(w, http.StatusBadRequest, "learner query parameter is required")
		return
	}
	stories, err := a.store.ListStories(r.Context(), learnerID)
	if err != nil {
		slog.Error("list stories failed", "learner", learnerID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list stories")
		return
	}
	if stories == nil {
		stories = []story.Story{}
	}
	writeJSON(w, http.StatusOK, stories)
}

func (a *App) handleGetStory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, err := a.store.GetStory(r.Context(), id)
	if err != nil {
		slog.Error("get story failed", "story", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load story")
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "story not found")
		return
	}

	detail := storyDetail{Story: *st}
	if report, err := a.store.GetReport(r.Context(), id); err == nil {
		detail.Report = report
	}
	if res, err := a.store.GetQuizResult(r.Context(), id); err == nil {
		detail.QuizResult = res
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *App) handleDeleteStory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.store.DeleteStory(r.Context(), id); err != nil {
		slog.Error("delete story failed", "story", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete story")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleSaveReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		Report string `json:"report"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := a.store.SaveReport(r.Context(), id, body.Report); err != nil {
		writeError(w, http.StatusNotFound, "story not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleGetCredits(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	credits, err := a.stories.Credits(r.Context(), id)
	if err != nil {
		slog.Error("credits lookup failed", "learner", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not read credits")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"credits": credits})
}

func (a *App) handleGrantCredits(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		Amount int `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if body.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	credits, err := a.stories.Grant(r.Context(), id, body.Amount)
	if err != nil {
		slog.Error("credit grant failed", "learner", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not grant credits")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"credits": credits})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
