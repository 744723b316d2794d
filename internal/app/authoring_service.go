package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"lms-quiz-service/internal/domain"
)

// QuizStatus marks whether a stored quiz passed validation on publish.
type QuizStatus string

const (
	QuizDraft     QuizStatus = "draft"
	QuizPublished QuizStatus = "published"
)

// QuizStore persists authored quizzes.
type QuizStore interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz, status QuizStatus) error
}

// QuizInvalidator is implemented by quiz caches that must drop stale copies
// after an author saves.
type QuizInvalidator interface {
	Invalidate(ctx context.Context, quizID string) error
}

// Draft is a quiz together with its live validation problems.
type Draft struct {
	Quiz   domain.Quiz `json:"quiz"`
	Errors []string    `json:"errors"`
}

// AuthoringService runs builder operations against stored quizzes.
type AuthoringService struct {
	store     QuizStore
	generator QuestionGenerator
	lessons   ContentPersister
	caches    []QuizInvalidator
	log       *zap.Logger
}

// NewAuthoringService wires the authoring use cases. lessons receives the
// final quiz on publish and may be nil when quizzes are not attached to
// lessons.
func NewAuthoringService(store QuizStore, generator QuestionGenerator, lessons ContentPersister, log *zap.Logger, caches ...QuizInvalidator) *AuthoringService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthoringService{store: store, generator: generator, lessons: lessons, caches: caches, log: log}
}

// Get loads a quiz and reports its validation state.
func (s *AuthoringService) Get(ctx context.Context, quizID string) (Draft, error) {
	quiz, err := s.store.LoadQuiz(ctx, quizID)
	if err != nil {
		return Draft{}, err
	}
	return draftOf(quiz), nil
}

// Save stores a quiz as a draft. Invalid drafts are saved too; only Publish
// is gated on validation.
func (s *AuthoringService) Save(ctx context.Context, quiz domain.Quiz) (Draft, error) {
	if quiz.ID == "" {
		return Draft{}, fmt.Errorf("quiz id is required")
	}
	b := NewBuilder(quiz)
	if err := s.persist(ctx, b.Quiz(), QuizDraft); err != nil {
		return Draft{}, err
	}
	return Draft{Quiz: b.Quiz(), Errors: b.Errors()}, nil
}

// Edit applies one builder operation and saves the resulting draft.
func (s *AuthoringService) Edit(ctx context.Context, quizID string, op func(*Builder) error) (Draft, error) {
	quiz, err := s.store.LoadQuiz(ctx, quizID)
	if err != nil {
		return Draft{}, err
	}
	b := NewBuilder(quiz)
	if err := op(b); err != nil {
		return Draft{}, err
	}
	if err := s.persist(ctx, b.Quiz(), QuizDraft); err != nil {
		return Draft{}, err
	}
	return Draft{Quiz: b.Quiz(), Errors: b.Errors()}, nil
}

// Generate appends AI-drafted questions to a stored quiz.
func (s *AuthoringService) Generate(ctx context.Context, quizID string, count int, t domain.QuestionType) (Draft, []domain.Question, error) {
	if s.generator == nil {
		return Draft{}, nil, domain.ErrGenerationDisabled
	}
	var added []domain.Question
	draft, err := s.Edit(ctx, quizID, func(b *Builder) error {
		var err error
		added, err = b.Generate(ctx, s.generator, count, t)
		return err
	})
	if err != nil {
		return Draft{}, nil, err
	}
	s.log.Info("generated quiz questions", zap.String("quiz_id", quizID), zap.Int("count", len(added)))
	return draft, added, nil
}

// Publish marks a quiz as final and writes it into the content of the quiz
// lesson sharing its id. It fails with *domain.ValidationError when the quiz
// is incomplete.
func (s *AuthoringService) Publish(ctx context.Context, quizID string) (Draft, error) {
	quiz, err := s.store.LoadQuiz(ctx, quizID)
	if err != nil {
		return Draft{}, err
	}
	draft := draftOf(quiz)
	if len(draft.Errors) > 0 {
		return draft, &domain.ValidationError{Problems: draft.Errors}
	}
	if err := s.persist(ctx, quiz, QuizPublished); err != nil {
		return Draft{}, err
	}
	if err := s.finalize(ctx, quiz); err != nil {
		return Draft{}, err
	}
	s.log.Info("quiz published", zap.String("quiz_id", quizID), zap.Int("questions", len(quiz.Questions)))
	return draft, nil
}

func (s *AuthoringService) persist(ctx context.Context, quiz domain.Quiz, status QuizStatus) error {
	if err := s.store.SaveQuiz(ctx, quiz, status); err != nil {
		return fmt.Errorf("save quiz %s: %w", quiz.ID, err)
	}
	for _, c := range s.caches {
		if err := c.Invalidate(ctx, quiz.ID); err != nil {
			s.log.Warn("quiz cache invalidation failed", zap.String("quiz_id", quiz.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *AuthoringService) finalize(ctx context.Context, quiz domain.Quiz) error {
	if s.lessons == nil {
		return nil
	}
	data, err := json.Marshal(domain.QuizContent{Quiz: quiz})
	if err != nil {
		return fmt.Errorf("encode quiz %s: %w", quiz.ID, err)
	}
	err = s.lessons.SaveContent(ctx, quiz.ID, data)
	if errors.Is(err, domain.ErrLessonNotFound) {
		s.log.Debug("published quiz has no lesson", zap.String("quiz_id", quiz.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("write quiz %s into lesson: %w", quiz.ID, err)
	}
	return nil
}

func draftOf(quiz domain.Quiz) Draft {
	if quiz.Questions == nil {
		quiz.Questions = []domain.Question{}
	}
	return Draft{Quiz: quiz, Errors: ValidateQuiz(quiz)}
}
