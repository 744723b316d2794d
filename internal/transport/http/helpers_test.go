package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"lms-quiz-service/internal/app"
	"lms-quiz-service/internal/domain"
	"lms-quiz-service/internal/infra/memory"
)

type testEnv struct {
	server  *httptest.Server
	quizzes *memory.QuizStore
	lessons *memory.LessonStore
	players *memory.PlayerStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithGenerator(t, nil)
}

func newTestEnvWithGenerator(t *testing.T, generator app.QuestionGenerator) *testEnv {
	t.Helper()
	quizzes := memory.NewQuizStore(sampleQuiz())
	lessons := memory.NewLessonStore(
		app.StoredLesson{ID: "l1", ModuleID: "m1", Title: "Intro", Type: domain.LessonText, Content: []byte(`"<p>hello</p>"`)},
		app.StoredLesson{ID: "l2", ModuleID: "m1", Title: "Quiz", Type: domain.LessonQuiz},
		app.StoredLesson{ID: "quiz-2", ModuleID: "m2", Title: "Booleans", Type: domain.LessonQuiz},
	)
	cache := memory.NewQuizRepository(quizzes, time.Minute)
	players := memory.NewPlayerStore()

	lessonService := app.NewLessonService(lessons, app.AutosaveOptions{Debounce: time.Hour, StatusReset: time.Hour}, nil)
	t.Cleanup(func() { lessonService.Close(context.Background()) })

	router := NewRouter(Services{
		Authoring: app.NewAuthoringService(quizzes, generator, lessonService, nil, cache),
		Players: app.NewPlayerService(players, cache, app.PlayerDeps{
			Ledger: app.NewAttemptLedger(memory.NewKVStore(), nil),
		}),
		Lessons: lessonService,
	}, nil)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{server: server, quizzes: quizzes, lessons: lessons, players: players}
}

func sampleQuiz() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Arithmetic",
			Questions: []domain.Question{
				{
					ID:       "q1",
					Type:     domain.MultipleChoice,
					Question: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3", IsCorrect: false},
						{ID: "o2", Text: "4", IsCorrect: true},
						{ID: "o3", Text: "5", IsCorrect: false},
					},
					Points: 1,
				},
			},
		},
	}
}
