// Package storygen defines the Provider interface for story generation
// backends.
//
// A generator turns a child's topic ("a dragon who likes pancakes") into a
// short story draft with a title, age-appropriate narrative text, an
// illustration prompt and a small comprehension quiz. Implementations must be
// safe for concurrent use.
package storygen

import (
	"context"
	"errors"

	"github.com/readalong/readalong/pkg/story"
)

// ErrEmptyTopic is returned when a generation request carries no topic.
var ErrEmptyTopic = errors.New("storygen: empty topic")

// Request describes one story generation call.
type Request struct {
	// Topic is the child's prompt for the story. Must be non-empty.
	Topic string

	// Length selects the story size tier. Empty defaults to short.
	Length story.LengthTier

	// ReaderAge tunes vocabulary difficulty. Zero means early reader (6).
	ReaderAge int
}

// Draft is a generated story before it is persisted. IllustrationPrompt is
// the scene description handed to an image pipeline, not a URL.
type Draft struct {
	Title              string               `json:"title"`
	Text               string               `json:"text"`
	IllustrationPrompt string               `json:"illustration_prompt"`
	Quiz               []story.QuizQuestion `json:"quiz"`
}

// Provider is the abstraction over any story generation backend.
type Provider interface {
	// Generate produces a story draft for req. Returns ErrEmptyTopic when
	// req.Topic is empty. Cancellation of ctx aborts the call.
	Generate(ctx context.Context, req Request) (Draft, error)
}
