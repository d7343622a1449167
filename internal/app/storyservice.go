package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/readalong/readalong/internal/observe"
	"github.com/readalong/readalong/internal/storystore"
	"github.com/readalong/readalong/pkg/provider/storygen"
	"github.com/readalong/readalong/pkg/story"
)

// StoryService turns generation requests into persisted stories and runs the
// credits ledger around them. Each generation costs one credit; the credit is
// refunded when the backend fails or the story cannot be saved.
type StoryService struct {
	store          storystore.Store
	gen            storygen.Provider
	initialCredits int
	log            *slog.Logger
}

// NewStoryService creates a StoryService. New learners are seeded with
// initialCredits on their first generation request.
func NewStoryService(store storystore.Store, gen storygen.Provider, initialCredits int) *StoryService {
	return &StoryService{
		store:          store,
		gen:            gen,
		initialCredits: initialCredits,
		log:            slog.Default().With("component", "stories"),
	}
}

// Generate produces a new story for the learner and persists it. Returns
// storystore.ErrNoCredits when the learner's balance is exhausted.
func (s *StoryService) Generate(ctx context.Context, learnerID, topic string,
	length story.LengthTier, readerAge int) (*story.Story, error) {

	if s.gen == nil {
		return nil, fmt.Errorf("storyservice: no generation backend configured")
	}
	length = lengthOrDefault(length)

	if err := s.store.EnsureLearner(ctx, learnerID, s.initialCredits); err != nil {
		return nil, fmt.Errorf("storyservice: ensure learner: %w", err)
	}
	balance, err := s.store.DebitCredit(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("storyservice: debit credit: %w", err)
	}

	start := time.Now()
	draft, err := s.gen.Generate(ctx, storygen.Request{
		Topic:     topic,
		Length:    length,
		ReaderAge: readerAge,
	})
	observe.DefaultMetrics().GenerationDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		observe.DefaultMetrics().RecordProviderError(ctx, "storygen", "generate")
		s.refund(ctx, learnerID)
		return nil, fmt.Errorf("storyservice: generate: %w", err)
	}
	observe.DefaultMetrics().RecordProviderRequest(ctx, "storygen", "generate", "ok")

	st := story.New(learnerID, draft.Title, draft.Text)
	st.Quiz = draft.Quiz
	if err := s.store.CreateStory(ctx, &st); err != nil {
		s.refund(ctx, learnerID)
		return nil, fmt.Errorf("storyservice: save story: %w", err)
	}

	observe.DefaultMetrics().RecordStoryGenerated(ctx, string(length))
	s.log.Info("story generated",
		"learner", learnerID,
		"story", st.ID.String(),
		"tier", length,
		"credits_left", balance)
	return &st, nil
}

// refund returns the debited credit after a failed generation.
func (s *StoryService) refund(ctx context.Context, learnerID string) {
	if _, err := s.store.GrantCredits(ctx, learnerID, 1); err != nil {
		s.log.Warn("credit refund failed", "learner", learnerID, "error", err)
	}
}

// Credits reports the learner's remaining balance, provisioning the ledger
// row on first contact.
func (s *StoryService) Credits(ctx context.Context, learnerID string) (int, error) {
	if err := s.store.EnsureLearner(ctx, learnerID, s.initialCredits); err != nil {
		return 0, err
	}
	return s.store.Credits(ctx, learnerID)
}

// Grant adds n credits to the learner's balance and returns the new total.
func (s *StoryService) Grant(ctx context.Context, learnerID string, n int) (int, error) {
	if err := s.store.EnsureLearner(ctx, learnerID, s.initialCredits); err != nil {
		return 0, err
	}
	return s.store.GrantCredits(ctx, learnerID, n)
}
