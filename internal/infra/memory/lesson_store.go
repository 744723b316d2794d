package memory

import (
	"context"
	"sort"
	"sync"

	"lms-quiz-service/internal/app"
	"lms-quiz-service/internal/domain"
)

// LessonStore keeps lessons in a map.
type LessonStore struct {
	mu      sync.RWMutex
	lessons map[string]app.StoredLesson
	saves   int
}

func NewLessonStore(seed ...app.StoredLesson) *LessonStore {
	s := &LessonStore{lessons: make(map[string]app.StoredLesson, len(seed))}
	for _, l := range seed {
		s.lessons[l.ID] = l
	}
	return s
}

func (s *LessonStore) LoadLesson(_ context.Context, lessonID string) (app.StoredLesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lessons[lessonID]
	if !ok {
		return app.StoredLesson{}, domain.ErrLessonNotFound
	}
	l.Content = append([]byte(nil), l.Content...)
	return l, nil
}

func (s *LessonStore) SaveContent(_ context.Context, lessonID string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[lessonID]
	if !ok {
		return domain.ErrLessonNotFound
	}
	l.Content = append([]byte(nil), content...)
	s.lessons[lessonID] = l
	s.saves++
	return nil
}

// Saves counts successful content writes.
func (s *LessonStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// ListLessons returns lessons in curriculum order, matching the Postgres
// store: module, then position, then id.
func (s *LessonStore) ListLessons(_ context.Context, moduleID string) ([]app.StoredLesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]app.StoredLesson, 0)
	for _, l := range s.lessons {
		if moduleID != "" && l.ModuleID != moduleID {
			continue
		}
		l.Content = append([]byte(nil), l.Content...)
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ModuleID != b.ModuleID {
			return a.ModuleID < b.ModuleID
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
	return out, nil
}
