package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the parent of every lookup failure.
	ErrNotFound = errors.New("not found")
	// ErrUserNotFound is returned when the caller does not resolve to a user record.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrAttemptNotFound indicates no attempt exists with the requested id.
	ErrAttemptNotFound = fmt.Errorf("attempt %w", ErrNotFound)
	// ErrForbidden is returned when the caller may not access a resource.
	ErrForbidden = errors.New("forbidden")
	// ErrCodec indicates an answer set could not be encoded or decoded.
	ErrCodec = errors.New("answer codec")
	// ErrInternal marks data-integrity failures that are not the caller's fault.
	ErrInternal = errors.New("internal error")
	// ErrInvalidQuiz is returned for malformed authoring input.
	ErrInvalidQuiz = errors.New("invalid quiz")
)
