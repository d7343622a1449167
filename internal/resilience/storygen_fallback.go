package resilience

import (
	"context"

	"github.com/readalong/readalong/pkg/provider/storygen"
)

// StoryGenFallback implements [storygen.Provider] with automatic failover,
// typically a cloud model backed by a local Ollama model.
type StoryGenFallback struct {
	group *FallbackGroup[storygen.Provider]
}

// Compile-time interface assertion.
var _ storygen.Provider = (*StoryGenFallback)(nil)

// NewStoryGenFallback creates a [StoryGenFallback] with primary as the
// preferred backend.
func NewStoryGenFallback(primary storygen.Provider, primaryName string, cfg FallbackConfig) *StoryGenFallback {
	return &StoryGenFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional story generator as a fallback.
func (f *StoryGenFallback) AddFallback(name string, provider storygen.Provider) {
	f.group.AddFallback(name, provider)
}

// Generate runs the request against the first healthy provider.
func (f *StoryGenFallback) Generate(ctx context.Context, req storygen.Request) (storygen.Draft, error) {
	return ExecuteWithResult(f.group, func(p storygen.Provider) (storygen.Draft, error) {
		return p.Generate(ctx, req)
	})
}
