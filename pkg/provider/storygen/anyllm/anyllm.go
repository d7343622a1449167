// Package anyllm provides a story generation backend over
// github.com/mozilla-ai/any-llm-go, a unified multi-provider LLM interface
// that supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq,
// and more.
//
// Usage:
//
//	g, err := anyllm.New("openai", "gpt-4o-mini")
//	g, err := anyllm.NewOllama("llama3.2")
package anyllm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/readalong/readalong/pkg/provider/storygen"
	"github.com/readalong/readalong/pkg/story"
)

// Compile-time assertion that Generator implements storygen.Provider.
var _ storygen.Provider = (*Generator)(nil)

const systemPrompt = `You write very short stories for children who are learning to read.
Rules:
- Use simple, common words a young reader can sound out.
- Short declarative sentences. No dialogue-heavy passages.
- The story must be kind and gentle. Nothing scary or violent.
- Reply with ONLY a JSON object, no markdown fences, matching:
  {"title": string,
   "text": string,
   "illustration_prompt": string,
   "quiz": [{"prompt": string, "choices": [string, string, string], "correct_index": int}]}
- quiz has exactly 2 questions about the story, each with 3 choices.`

// sentenceCounts maps a length tier to the sentence count requested from the
// model.
var sentenceCounts = map[story.LengthTier]int{
	story.LengthShort:  3,
	story.LengthMedium: 6,
	story.LengthLong:   10,
}

// Generator implements storygen.Provider by wrapping any-llm-go.
type Generator struct {
	backend anyllmlib.Provider
	model   string
}

// New creates a Generator backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "mistral". model is the specific model to use (e.g., "gpt-4o-mini").
// Without an API key option the backend falls back to its environment
// variable (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...).
func New(providerName string, model string, opts ...anyllmlib.Option) (*Generator, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &Generator{backend: backend, model: model}, nil
}

// NewOpenAI creates a Generator backed by OpenAI.
func NewOpenAI(model string, opts ...anyllmlib.Option) (*Generator, error) {
	return New("openai", model, opts...)
}

// NewAnthropic creates a Generator backed by Anthropic.
func NewAnthropic(model string, opts ...anyllmlib.Option) (*Generator, error) {
	return New("anthropic", model, opts...)
}

// NewOllama creates a Generator backed by Ollama (local inference).
func NewOllama(model string, opts ...anyllmlib.Option) (*Generator, error) {
	return New("ollama", model, opts...)
}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, mistral", providerName)
	}
}

// Generate implements storygen.Provider.
func (g *Generator) Generate(ctx context.Context, req storygen.Request) (storygen.Draft, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return storygen.Draft{}, storygen.ErrEmptyTopic
	}

	length := req.Length
	if length == "" {
		length = story.LengthShort
	}
	sentences, ok := sentenceCounts[length]
	if !ok {
		sentences = sentenceCounts[story.LengthShort]
	}
	age := req.ReaderAge
	if age <= 0 {
		age = 6
	}

	user := fmt.Sprintf("Write a story of about %d sentences for a %d-year-old about: %s",
		sentences, age, req.Topic)

	temp := 0.8
	params := anyllmlib.CompletionParams{
		Model: g.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: anyllmlib.RoleUser, Content: user},
		},
		Temperature: &temp,
	}

	resp, err := g.backend.Completion(ctx, params)
	if err != nil {
		return storygen.Draft{}, fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return storygen.Draft{}, fmt.Errorf("anyllm: empty choices in response")
	}

	draft, err := parseDraft(resp.Choices[0].Message.ContentString())
	if err != nil {
		return storygen.Draft{}, err
	}
	return draft, nil
}

// parseDraft extracts the JSON draft from the model output. Models sometimes
// wrap JSON in markdown fences despite instructions, so fences are stripped
// and the outermost object is located by brace matching.
func parseDraft(content string) (storygen.Draft, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return storygen.Draft{}, fmt.Errorf("anyllm: no JSON object in model output")
	}

	var draft storygen.Draft
	if err := json.Unmarshal([]byte(content[start:end+1]), &draft); err != nil {
		return storygen.Draft{}, fmt.Errorf("anyllm: parse model output: %w", err)
	}
	if strings.TrimSpace(draft.Title) == "" || strings.TrimSpace(draft.Text) == "" {
		return storygen.Draft{}, fmt.Errorf("anyllm: model output missing title or text")
	}
	return draft, nil
}
