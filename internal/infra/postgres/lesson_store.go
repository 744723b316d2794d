package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lms-quiz-service/internal/app"
	"lms-quiz-service/internal/domain"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// LessonStore reads lessons and writes their content. Content is kept as
// text because older rows hold raw HTML or string-wrapped JSON.
type LessonStore struct {
	pool *pgxpool.Pool
}

func NewLessonStore(pool *pgxpool.Pool) *LessonStore {
	return &LessonStore{pool: pool}
}

func (s *LessonStore) LoadLesson(ctx context.Context, lessonID string) (app.StoredLesson, error) {
	var (
		l       app.StoredLesson
		kind    string
		content *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, module_id, title, type, position, content FROM lessons WHERE id=$1`, lessonID,
	).Scan(&l.ID, &l.ModuleID, &l.Title, &kind, &l.Position, &content)
	if errors.Is(err, pgx.ErrNoRows) {
		return app.StoredLesson{}, domain.ErrLessonNotFound
	}
	if err != nil {
		return app.StoredLesson{}, fmt.Errorf("load lesson: %w", err)
	}
	l.Type = domain.LessonType(kind)
	if content != nil {
		l.Content = []byte(*content)
	}
	return l, nil
}

func (s *LessonStore) SaveContent(ctx context.Context, lessonID string, content []byte) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE lessons SET content=$2, updated_at=now() WHERE id=$1`, lessonID, string(content))
	if err != nil {
		return fmt.Errorf("save lesson content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLessonNotFound
	}
	return nil
}

// ListLessons returns lessons in curriculum order. An empty moduleID lists
// every lesson.
func (s *LessonStore) ListLessons(ctx context.Context, moduleID string) ([]app.StoredLesson, error) {
	sqlStr, args, err := listLessonsQuery(moduleID)
	if err != nil {
		return nil, fmt.Errorf("build lesson query: %w", err)
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []app.StoredLesson
	for rows.Next() {
		var (
			l       app.StoredLesson
			kind    string
			content *string
		)
		if err := rows.Scan(&l.ID, &l.ModuleID, &l.Title, &kind, &l.Position, &content); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		l.Type = domain.LessonType(kind)
		if content != nil {
			l.Content = []byte(*content)
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

func listLessonsQuery(moduleID string) (string, []interface{}, error) {
	query := sqlBuilder.
		Select("id", "module_id", "title", "type", "position", "content").
		From("lessons").
		OrderBy("module_id", "position", "id")
	if moduleID != "" {
		query = query.Where(squirrel.Eq{"module_id": moduleID})
	}
	return query.ToSql()
}
