package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms-quiz-service/internal/app"
	"lms-quiz-service/internal/domain"
	"lms-quiz-service/internal/infra/memory"
)

type fixedGenerator struct {
	questions []domain.Question
	requests  []app.GenerationRequest
}

func (g *fixedGenerator) GenerateQuestions(_ context.Context, req app.GenerationRequest) ([]domain.Question, error) {
	g.requests = append(g.requests, req)
	return g.questions, nil
}

type countingInvalidator struct {
	ids []string
	err error
}

func (c *countingInvalidator) Invalidate(_ context.Context, quizID string) error {
	c.ids = append(c.ids, quizID)
	return c.err
}

func TestAuthoringServiceSavesInvalidDraftButRefusesPublish(t *testing.T) {
	ctx := context.Background()
	store := memory.NewQuizStore(nil)
	cache := &countingInvalidator{}
	service := app.NewAuthoringService(store, nil, nil, nil, cache)

	draft, err := service.Save(ctx, domain.Quiz{ID: "quiz-1", Title: "Draft"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Quiz must have at least one question"}, draft.Errors)
	assert.Equal(t, app.QuizDraft, store.Status("quiz-1"))
	assert.Equal(t, []string{"quiz-1"}, cache.ids)

	_, err = service.Publish(ctx, "quiz-1")
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, draft.Errors, verr.Problems)
	assert.Equal(t, app.QuizDraft, store.Status("quiz-1"))
}

func TestAuthoringServiceEditThenPublish(t *testing.T) {
	ctx := context.Background()
	store := memory.NewQuizStore(nil)
	cache := &countingInvalidator{err: errors.New("redis down")}
	service := app.NewAuthoringService(store, nil, nil, nil, cache)

	_, err := service.Save(ctx, domain.Quiz{ID: "quiz-1", Title: "Booleans"})
	require.NoError(t, err)

	var added domain.Question
	draft, err := service.Edit(ctx, "quiz-1", func(b *app.Builder) error {
		var err error
		added, err = b.AddQuestion(domain.TrueFalse)
		if err != nil {
			return err
		}
		text := "Zero is falsy in Go"
		answer := "false"
		return b.UpdateQuestion(added.ID, app.QuestionPatch{Question: &text, CorrectAnswer: &answer})
	})
	require.NoError(t, err, "cache failures are logged, not returned")
	assert.Empty(t, draft.Errors)
	require.Len(t, draft.Quiz.Questions, 1)

	published, err := service.Publish(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, "false", published.Quiz.Questions[0].CorrectAnswer)
	assert.Equal(t, app.QuizPublished, store.Status("quiz-1"))

	got, err := service.Get(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, added.ID, got.Quiz.Questions[0].ID)
}

func TestAuthoringServiceEditErrorDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	store := memory.NewQuizStore(map[string]domain.Quiz{"quiz-1": {ID: "quiz-1", Title: "Keep"}})
	service := app.NewAuthoringService(store, nil, nil, nil)

	_, err := service.Edit(ctx, "quiz-1", func(b *app.Builder) error {
		b.SetTitle("Changed")
		return b.DeleteQuestion("nope")
	})
	assert.ErrorIs(t, err, domain.ErrQuestionNotFound)

	got, err := service.Get(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, "Keep", got.Quiz.Title)

	_, err = service.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
}

func TestAuthoringServiceGenerate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewQuizStore(map[string]domain.Quiz{"quiz-1": {ID: "quiz-1", Title: "Channels", Description: "Buffered and unbuffered"}})
	gen := &fixedGenerator{questions: []domain.Question{{
		ID: "ai-1", Type: domain.ShortAnswer, Question: "Keyword to receive from many channels?", CorrectAnswer: "select",
	}}}
	service := app.NewAuthoringService(store, gen, nil, nil)

	draft, added, err := service.Generate(ctx, "quiz-1", 1, domain.ShortAnswer)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.NotEqual(t, "ai-1", added[0].ID)
	assert.Equal(t, 1, added[0].Points)
	assert.Len(t, draft.Quiz.Questions, 1)
	require.Len(t, gen.requests, 1)
	assert.Equal(t, "Channels", gen.requests[0].Title)

	_, _, err = app.NewAuthoringService(store, nil, nil, nil).Generate(ctx, "quiz-1", 1, domain.ShortAnswer)
	assert.ErrorIs(t, err, domain.ErrGenerationDisabled)
}

func TestAuthoringServicePublishWritesQuizLesson(t *testing.T) {
	ctx := context.Background()
	quiz := domain.Quiz{ID: "quiz-1", Title: "Booleans", Questions: []domain.Question{{
		ID: "q1", Type: domain.TrueFalse, Question: "Go has generics", Points: 1, CorrectAnswer: "true",
	}}}
	store := memory.NewQuizStore(map[string]domain.Quiz{"quiz-1": quiz})
	lessons, _ := newTestLessonService(app.StoredLesson{ID: "quiz-1", ModuleID: "m1", Type: domain.LessonQuiz})
	defer lessons.Close(ctx)
	service := app.NewAuthoringService(store, nil, lessons, nil)

	// an unsaved lesson edit loses to the published quiz
	_, err := lessons.Edit(ctx, "quiz-1", json.RawMessage(`{"title":"stale","questions":[]}`))
	require.NoError(t, err)

	_, err = service.Publish(ctx, "quiz-1")
	require.NoError(t, err)

	lesson, err := lessons.Lesson(ctx, "quiz-1")
	require.NoError(t, err)
	content, ok := lesson.Content.(domain.QuizContent)
	require.True(t, ok)
	assert.Equal(t, "Booleans", content.Title)
	require.Len(t, content.Questions, 1)
	assert.Equal(t, "q1", content.Questions[0].ID)
	assert.Equal(t, app.SaveIdle, lessons.Status("quiz-1"))
}

func TestAuthoringServicePublishWithoutLesson(t *testing.T) {
	ctx := context.Background()
	store := memory.NewQuizStore(map[string]domain.Quiz{"quiz-9": {ID: "quiz-9", Title: "Solo", Questions: []domain.Question{{
		ID: "q1", Type: domain.TrueFalse, Question: "Solo quizzes publish", Points: 1, CorrectAnswer: "true",
	}}}})
	lessons, _ := newTestLessonService()
	service := app.NewAuthoringService(store, nil, lessons, nil)

	_, err := service.Publish(ctx, "quiz-9")
	require.NoError(t, err)
	assert.Equal(t, app.QuizPublished, store.Status("quiz-9"))
}
