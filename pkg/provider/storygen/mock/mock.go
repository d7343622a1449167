// Package mock provides a scriptable storygen.Provider for tests.
package mock

import (
	"context"
	"strings"

	"github.com/readalong/readalong/pkg/provider/storygen"
	"github.com/readalong/readalong/pkg/story"
)

// Compile-time assertion that Provider implements storygen.Provider.
var _ storygen.Provider = (*Provider)(nil)

// Provider is a fake story generator. The zero value returns a fixed
// three-sentence story. Set GenerateFunc to script behaviour.
type Provider struct {
	GenerateFunc func(ctx context.Context, req storygen.Request) (storygen.Draft, error)
}

// Generate implements storygen.Provider.
func (p *Provider) Generate(ctx context.Context, req storygen.Request) (storygen.Draft, error) {
	if p.GenerateFunc != nil {
		return p.GenerateFunc(ctx, req)
	}
	if strings.TrimSpace(req.Topic) == "" {
		return storygen.Draft{}, storygen.ErrEmptyTopic
	}
	return storygen.Draft{
		Title:              "The Little Boat",
		Text:               "A little boat sat on the lake. The wind began to blow. The boat sailed home.",
		IllustrationPrompt: "a small red boat on a calm lake at sunset",
		Quiz: []story.QuizQuestion{
			{Prompt: "Where was the boat?", Choices: []string{"On the lake", "In a tree", "On a road"}, CorrectIndex: 0},
			{Prompt: "What began to blow?", Choices: []string{"A horn", "The wind", "A whistle"}, CorrectIndex: 1},
		},
	}, nil
}
