// Package storystore persists reading material and learner progress: stories
// with their quizzes, free-text book reports, quiz attempts, and the credits
// ledger that gates story generation.
package storystore

import (
	"context"
	"errors"
	"time"

	"github.com/readalong/readalong/pkg/story"
)

// ErrNoCredits is returned by DebitCredit when the learner's balance is zero.
var ErrNoCredits = errors.New("storystore: no credits remaining")

// QuizResult records one completed quiz attempt.
type QuizResult struct {
	Correct    int       `json:"correct"`
	Total      int       `json:"total"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Store provides persistence for stories and the credits ledger.
// Implementations must be safe for concurrent use.
type Store interface {
	// CreateStory inserts a new story. The story is validated before
	// insertion. Returns an error if a story with the same ID already exists.
	CreateStory(ctx context.Context, st *story.Story) error

	// GetStory retrieves a story by ID. Returns (nil, nil) if not found.
	GetStory(ctx context.Context, id string) (*story.Story, error)

	// ListStories returns the owner's stories, newest first.
	ListStories(ctx context.Context, ownerID string) ([]story.Story, error)

	// DeleteStory removes a story by ID. Deleting a missing story is not an
	// error.
	DeleteStory(ctx context.Context, id string) error

	// SaveReport stores the learner's free-text book report for a story,
	// replacing any previous report.
	SaveReport(ctx context.Context, storyID, report string) error

	// GetReport returns the saved book report, or "" when none exists.
	GetReport(ctx context.Context, storyID string) (string, error)

	// SaveQuizResult stores the outcome of a quiz attempt, replacing any
	// previous result for the story.
	SaveQuizResult(ctx context.Context, storyID string, res QuizResult) error

	// GetQuizResult returns the saved quiz result. Returns (nil, nil) when
	// the quiz has not been attempted.
	GetQuizResult(ctx context.Context, storyID string) (*QuizResult, error)

	// EnsureLearner creates the learner's ledger row with the given starting
	// balance if it does not exist yet.
	EnsureLearner(ctx context.Context, learnerID string, initialCredits int) error

	// Credits returns the learner's remaining balance.
	Credits(ctx context.Context, learnerID string) (int, error)

	// DebitCredit atomically spends one credit and returns the new balance.
	// Returns ErrNoCredits when the balance is already zero.
	DebitCredit(ctx context.Context, learnerID string) (int, error)

	// GrantCredits adds n credits to the learner's balance and returns the
	// new balance.
	GrantCredits(ctx context.Context, learnerID string, n int) (int, error)
}
