// Package story holds the reading-material model: stories with their derived
// word and sentence lists, comprehension quizzes, and the Walker cursor that
// tracks a learner's position during practice.
package story

import (
	"strings"
	"time"

	"github.com/rs/xid"
)

// LengthTier selects roughly how long a generated story should be.
type LengthTier string

const (
	LengthShort  LengthTier = "short"  // ~3 sentences
	LengthMedium LengthTier = "medium" // ~6 sentences
	LengthLong   LengthTier = "long"   // ~10 sentences
)

// QuizQuestion is one multiple-choice comprehension question attached to a
// story. CorrectIndex points into Choices.
type QuizQuestion struct {
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
}

// Story is a piece of reading material. Word and sentence lists are derived
// from Text on demand rather than stored, so edits cannot desynchronise them.
type Story struct {
	ID              xid.ID         `json:"id"`
	OwnerID         string         `json:"owner_id"`
	Title           string         `json:"title"`
	Text            string         `json:"text"`
	IllustrationURL string         `json:"illustration_url,omitempty"`
	Quiz            []QuizQuestion `json:"quiz,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// New builds a Story with a fresh creation-ordered ID.
func New(ownerID, title, text string) Story {
	return Story{
		ID:        xid.New(),
		OwnerID:   ownerID,
		Title:     title,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

// Words returns the story text split on whitespace, in reading order.
// Punctuation stays attached to its word; normalisation happens at comparison
// time, not here, so the display text is preserved.
func (s Story) Words() []string {
	return strings.Fields(s.Text)
}

// Sentences returns the story text split into sentences. See SplitSentences
// for the splitting rules.
func (s Story) Sentences() []string {
	return SplitSentences(s.Text)
}

// Validate reports whether the story has enough content to practise with.
func (s Story) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return ErrNoTitle
	}
	if len(s.Words()) == 0 {
		return ErrNoText
	}
	for _, q := range s.Quiz {
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
			return ErrBadQuiz
		}
	}
	return nil
}
