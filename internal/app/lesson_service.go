package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"lms-quiz-service/internal/domain"
)

// StoredLesson is a lesson row as persisted, content still raw.
type StoredLesson struct {
	ID       string
	ModuleID string
	Title    string
	Type     domain.LessonType
	Position int
	Content  []byte
}

// LessonStore loads and saves lesson content.
type LessonStore interface {
	ContentPersister
	LoadLesson(ctx context.Context, lessonID string) (StoredLesson, error)
	ListLessons(ctx context.Context, moduleID string) ([]StoredLesson, error)
}

// LessonService keeps one Autosaver per edited lesson.
type LessonService struct {
	store LessonStore
	opts  AutosaveOptions
	log   *zap.Logger

	mu     sync.Mutex
	savers map[string]*lessonEditor
}

type lessonEditor struct {
	lesson StoredLesson
	saver  *Autosaver
}

func NewLessonService(store LessonStore, opts AutosaveOptions, log *zap.Logger) *LessonService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Log == nil {
		opts.Log = log
	}
	return &LessonService{store: store, opts: opts, log: log, savers: make(map[string]*lessonEditor)}
}

// Edit normalizes the new content for the lesson type and schedules a
// debounced save. Content that does not fit the lesson type is rejected.
func (s *LessonService) Edit(ctx context.Context, lessonID string, raw json.RawMessage) (SaveStatus, error) {
	editor, err := s.editor(ctx, lessonID)
	if err != nil {
		return "", err
	}
	content, err := domain.ParseLessonContent(editor.lesson.Type, raw)
	if err != nil {
		return "", fmt.Errorf("%w for %s lesson: %v", domain.ErrInvalidContent, editor.lesson.Type, err)
	}
	if err := editor.saver.Edit(content); err != nil {
		return "", err
	}
	return editor.saver.Status(), nil
}

// Flush saves pending edits of a lesson right away.
func (s *LessonService) Flush(ctx context.Context, lessonID string) (SaveStatus, error) {
	s.mu.Lock()
	editor, ok := s.savers[lessonID]
	s.mu.Unlock()
	if !ok {
		return SaveIdle, nil
	}
	err := editor.saver.Flush(ctx)
	return editor.saver.Status(), err
}

// Status reports the save status of a lesson.
func (s *LessonService) Status(lessonID string) SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if editor, ok := s.savers[lessonID]; ok {
		return editor.saver.Status()
	}
	return SaveIdle
}

// Lesson returns the lesson with normalized content, including unsaved
// edits. Malformed stored content comes back as the empty payload.
func (s *LessonService) Lesson(ctx context.Context, lessonID string) (domain.Lesson, error) {
	s.mu.Lock()
	editor, ok := s.savers[lessonID]
	s.mu.Unlock()

	var stored StoredLesson
	if ok {
		stored = editor.lesson
		stored.Content = editor.saver.Content()
	} else {
		var err error
		stored, err = s.store.LoadLesson(ctx, lessonID)
		if err != nil {
			return domain.Lesson{}, err
		}
	}

	return s.normalize(stored)
}

// List returns the lessons of a module in curriculum order. Lessons being
// edited show their unsaved content.
func (s *LessonService) List(ctx context.Context, moduleID string) ([]domain.Lesson, error) {
	stored, err := s.store.ListLessons(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	lessons := make([]domain.Lesson, 0, len(stored))
	for _, l := range stored {
		s.mu.Lock()
		if editor, ok := s.savers[l.ID]; ok {
			l.Content = editor.saver.Content()
		}
		s.mu.Unlock()
		lesson, err := s.normalize(l)
		if err != nil {
			s.log.Warn("skipping lesson of unknown type", zap.String("lesson_id", l.ID), zap.Error(err))
			continue
		}
		lessons = append(lessons, lesson)
	}
	return lessons, nil
}

func (s *LessonService) normalize(stored StoredLesson) (domain.Lesson, error) {
	content, err := domain.ParseLessonContent(stored.Type, stored.Content)
	if content == nil {
		return domain.Lesson{}, err
	}
	if err != nil {
		s.log.Warn("stored lesson content is malformed, using empty content",
			zap.String("lesson_id", stored.ID), zap.Error(err))
	}
	return domain.Lesson{
		ID:       stored.ID,
		ModuleID: stored.ModuleID,
		Title:    stored.Title,
		Type:     stored.Type,
		Content:  content,
	}, nil
}

// SaveContent replaces a lesson's content at once. An open editor for the
// lesson is dropped along with its unsaved edits, so reads see the new
// content.
func (s *LessonService) SaveContent(ctx context.Context, lessonID string, content []byte) error {
	s.mu.Lock()
	editor, ok := s.savers[lessonID]
	delete(s.savers, lessonID)
	s.mu.Unlock()
	if ok {
		editor.saver.Close()
	}
	return s.store.SaveContent(ctx, lessonID, content)
}

// Close flushes every lesson with pending edits and stops their timers.
func (s *LessonService) Close(ctx context.Context) {
	s.mu.Lock()
	editors := make([]*lessonEditor, 0, len(s.savers))
	for _, e := range s.savers {
		editors = append(editors, e)
	}
	s.savers = make(map[string]*lessonEditor)
	s.mu.Unlock()

	for _, e := range editors {
		if e.saver.Dirty() {
			if err := e.saver.Flush(ctx); err != nil {
				s.log.Error("flush on shutdown failed", zap.String("lesson_id", e.lesson.ID), zap.Error(err))
			}
		}
		e.saver.Close()
	}
}

func (s *LessonService) editor(ctx context.Context, lessonID string) (*lessonEditor, error) {
	s.mu.Lock()
	if editor, ok := s.savers[lessonID]; ok {
		s.mu.Unlock()
		return editor, nil
	}
	s.mu.Unlock()

	lesson, err := s.store.LoadLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if editor, ok := s.savers[lessonID]; ok {
		return editor, nil
	}
	saved := lesson.Content
	if content, err := domain.ParseLessonContent(lesson.Type, lesson.Content); err == nil {
		if data, err := json.Marshal(content); err == nil {
			saved = data
		}
	}
	editor := &lessonEditor{
		lesson: lesson,
		saver:  NewAutosaver(ctx, lessonID, s.store, saved, s.opts),
	}
	s.savers[lessonID] = editor
	return editor, nil
}
