package memory

import (
	"context"
	"sync"

	"lms-quiz-service/internal/app"
	"lms-quiz-service/internal/domain"
)

// QuizStore is a map-backed app.QuizStore (useful for tests/demos).
type QuizStore struct {
	mu       sync.RWMutex
	quizzes  map[string]domain.Quiz
	statuses map[string]app.QuizStatus
}

func NewQuizStore(seed map[string]domain.Quiz) *QuizStore {
	s := &QuizStore{
		quizzes:  make(map[string]domain.Quiz, len(seed)),
		statuses: make(map[string]app.QuizStatus, len(seed)),
	}
	for id, quiz := range seed {
		s.quizzes[id] = quiz.Clone()
		s.statuses[id] = app.QuizPublished
	}
	return s
}

func (s *QuizStore) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if quiz, ok := s.quizzes[quizID]; ok {
		return quiz.Clone(), nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (s *QuizStore) SaveQuiz(_ context.Context, quiz domain.Quiz, status app.QuizStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = quiz.Clone()
	s.statuses[quiz.ID] = status
	return nil
}

// Status reports the stored status of a quiz, empty when unknown.
func (s *QuizStore) Status(quizID string) app.QuizStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statuses[quizID]
}
