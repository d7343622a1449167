package story

import "errors"

var (
	// ErrNoTitle indicates a story without a usable title.
	ErrNoTitle = errors.New("story: missing title")
	// ErrNoText indicates a story whose text contains no words.
	ErrNoText = errors.New("story: text has no words")
	// ErrBadQuiz indicates a quiz question whose correct answer does not
	// point at one of its choices.
	ErrBadQuiz = errors.New("story: quiz correct index out of range")
)
