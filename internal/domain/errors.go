package domain

import (
	"errors"
	"strings"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a referenced question ID does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a referenced option ID does not exist.
	ErrOptionNotFound = errors.New("option not found")
	// ErrIndexOutOfRange is returned by reorder operations with bad indexes.
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrUnsupportedType is returned when an operation does not apply to a question type.
	ErrUnsupportedType = errors.New("operation not supported for question type")
	// ErrPlayerNotFound is returned when a user acts on a quiz they have not started.
	ErrPlayerNotFound = errors.New("quiz attempt not started")
	// ErrNotInProgress is returned for play actions after submit or lock-out.
	ErrNotInProgress = errors.New("quiz attempt is not in progress")
	// ErrAnswerRequired blocks moving past an unanswered question.
	ErrAnswerRequired = errors.New("current question has no answer")
	// ErrLessonNotFound indicates the lesson content could not be loaded.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrInvalidContent is returned when lesson content does not fit its type.
	ErrInvalidContent = errors.New("invalid lesson content")
	// ErrGenerationDisabled is returned when no question generator is configured.
	ErrGenerationDisabled = errors.New("question generation is not configured")
	// ErrGenerationFailed wraps failures of the question generator service.
	ErrGenerationFailed = errors.New("question generator is unavailable")
)

// ValidationError carries the validator output when a quiz is published in
// an incomplete state.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "quiz is invalid: " + strings.Join(e.Problems, "; ")
}
