package storystore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/readalong/readalong/pkg/story"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store]. It is
// suitable for tests and single-process development setups.
type MemStore struct {
	mu      sync.RWMutex
	stories map[string]story.Story
	reports map[string]string
	results map[string]QuizResult
	credits map[string]int
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		stories: make(map[string]story.Story),
		reports: make(map[string]string),
		results: make(map[string]QuizResult),
		credits: make(map[string]int),
	}
}

// CreateStory implements [Store.CreateStory].
func (s *MemStore) CreateStory(_ context.Context, st *story.Story) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := st.ID.String()
	if _, exists := s.stories[id]; exists {
		return fmt.Errorf("storystore: story with id %q already exists", id)
	}
	s.stories[id] = *st
	return nil
}

// GetStory implements [Store.GetStory].
func (s *MemStore) GetStory(_ context.Context, id string) (*story.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stories[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// ListStories implements [Store.ListStories]. Stories are returned newest
// first, relying on xid's creation ordering.
func (s *MemStore) ListStories(_ context.Context, ownerID string) ([]story.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []story.Story
	for _, st := range s.stories {
		if st.OwnerID == ownerID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

// DeleteStory implements [Store.DeleteStory].
func (s *MemStore) DeleteStory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stories, id)
	delete(s.reports, id)
	delete(s.results, id)
	return nil
}

// SaveReport implements [Store.SaveReport].
func (s *MemStore) SaveReport(_ context.Context, storyID, report string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stories[storyID]; !ok {
		return fmt.Errorf("storystore: story with id %q not found", storyID)
	}
	s.reports[storyID] = report
	return nil
}

// GetReport implements [Store.GetReport].
func (s *MemStore) GetReport(_ context.Context, storyID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reports[storyID], nil
}

// SaveQuizResult implements [Store.SaveQuizResult].
func (s *MemStore) SaveQuizResult(_ context.Context, storyID string, res QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stories[storyID]; !ok {
		return fmt.Errorf("storystore: story with id %q not found", storyID)
	}
	s.results[storyID] = res
	return nil
}

// GetQuizResult implements [Store.GetQuizResult].
func (s *MemStore) GetQuizResult(_ context.Context, storyID string) (*QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[storyID]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

// EnsureLearner implements [Store.EnsureLearner].
func (s *MemStore) EnsureLearner(_ context.Context, learnerID string, initialCredits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credits[learnerID]; !ok {
		s.credits[learnerID] = initialCredits
	}
	return nil
}

// Credits implements [Store.Credits].
func (s *MemStore) Credits(_ context.Context, learnerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credits[learnerID], nil
}

// DebitCredit implements [Store.DebitCredit].
func (s *MemStore) DebitCredit(_ context.Context, learnerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credits[learnerID] <= 0 {
		return 0, ErrNoCredits
	}
	s.credits[learnerID]--
	return s.credits[learnerID], nil
}

// GrantCredits implements [Store.GrantCredits].
func (s *MemStore) GrantCredits(_ context.Context, learnerID string, n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credits[learnerID]; !ok {
		return 0, fmt.Errorf("storystore: learner %q not found", learnerID)
	}
	s.credits[learnerID] += n
	return s.credits[learnerID], nil
}
