package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LessonType is the kind of payload a lesson carries.
type LessonType string

const (
	LessonVideo      LessonType = "video"
	LessonText       LessonType = "text"
	LessonQuiz       LessonType = "quiz"
	LessonAssignment LessonType = "assignment"
)

// Lesson is the smallest content unit within a course module.
type Lesson struct {
	ID       string        `json:"id"`
	ModuleID string        `json:"moduleId"`
	Title    string        `json:"title"`
	Type     LessonType    `json:"type"`
	Content  LessonContent `json:"content"`
}

// LessonContent is implemented by every lesson payload variant.
type LessonContent interface {
	LessonType() LessonType
}

type VideoContent struct {
	URL             string `json:"url"`
	Provider        string `json:"provider,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

func (VideoContent) LessonType() LessonType { return LessonVideo }

type TextContent struct {
	HTML string `json:"html"`
}

func (TextContent) LessonType() LessonType { return LessonText }

type QuizContent struct {
	Quiz
}

func (QuizContent) LessonType() LessonType { return LessonQuiz }

type AssignmentContent struct {
	Instructions string `json:"instructions"`
	MaxPoints    int    `json:"maxPoints,omitempty"`
	DueInDays    int    `json:"dueInDays,omitempty"`
}

func (AssignmentContent) LessonType() LessonType { return LessonAssignment }

// EmptyLessonContent returns the zero payload for a lesson type.
func EmptyLessonContent(t LessonType) (LessonContent, error) {
	switch t {
	case LessonVideo:
		return VideoContent{}, nil
	case LessonText:
		return TextContent{}, nil
	case LessonQuiz:
		return QuizContent{Quiz: Quiz{Questions: []Question{}}}, nil
	case LessonAssignment:
		return AssignmentContent{}, nil
	}
	return nil, fmt.Errorf("unknown lesson type %q", t)
}

// ParseLessonContent normalizes a stored content field into its typed
// payload. Stored content may be a JSON object, a JSON string wrapping a
// JSON object, or raw HTML for text lessons. Malformed content yields the
// empty payload together with the parse error so editors stay usable.
func ParseLessonContent(t LessonType, raw []byte) (LessonContent, error) {
	empty, err := EmptyLessonContent(t)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return empty, nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return empty, fmt.Errorf("decode %s content: %w", t, err)
		}
		if t == LessonText && !looksLikeJSONObject(inner) {
			return TextContent{HTML: inner}, nil
		}
		raw = bytes.TrimSpace([]byte(inner))
		if len(raw) == 0 {
			return empty, nil
		}
	}

	if t == LessonText && raw[0] != '{' {
		return TextContent{HTML: string(raw)}, nil
	}

	var content LessonContent
	switch t {
	case LessonVideo:
		var v VideoContent
		err = json.Unmarshal(raw, &v)
		content = v
	case LessonText:
		var v TextContent
		err = json.Unmarshal(raw, &v)
		content = v
	case LessonQuiz:
		var v QuizContent
		err = json.Unmarshal(raw, &v)
		if v.Questions == nil {
			v.Questions = []Question{}
		}
		content = v
	case LessonAssignment:
		var v AssignmentContent
		err = json.Unmarshal(raw, &v)
		content = v
	}
	if err != nil {
		return empty, fmt.Errorf("decode %s content: %w", t, err)
	}
	return content, nil
}

func looksLikeJSONObject(s string) bool {
	trimmed := bytes.TrimSpace([]byte(s))
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}
