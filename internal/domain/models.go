package domain

import "time"

// QuestionType discriminates the Question variants.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Matching       QuestionType = "matching"
)

// Known reports whether t is one of the supported question types.
func (t QuestionType) Known() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer, Matching:
		return true
	}
	return false
}

// Option is a selectable answer of a multiple choice question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Pair is one left/right item of a matching question.
type Pair struct {
	ID    string `json:"id"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Question is a tagged variant over Type. Options apply to multiple_choice,
// CorrectAnswer to true_false and short_answer, Pairs to matching.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Question      string       `json:"question"`
	Points        int          `json:"points"`
	Explanation   string       `json:"explanation,omitempty"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	Pairs         []Pair       `json:"pairs,omitempty"`
}

// Quiz is an ordered set of questions with scoring and timing rules.
type Quiz struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Questions          []Question `json:"questions"`
	TimeLimit          *int       `json:"timeLimit,omitempty"`       // minutes; nil means untimed
	PassingScore       *int       `json:"passingScore,omitempty"`    // percentage 0-100
	AttemptsAllowed    *int       `json:"attemptsAllowed,omitempty"` // nil means unlimited
	ShuffleQuestions   bool       `json:"shuffleQuestions"`
	ShowCorrectAnswers bool       `json:"showCorrectAnswers"`
	ShowExplanations   bool       `json:"showExplanations"`
}

// Clone returns a deep copy so callers can mutate without aliasing slices.
func (q Quiz) Clone() Quiz {
	out := q
	out.TimeLimit = cloneInt(q.TimeLimit)
	out.PassingScore = cloneInt(q.PassingScore)
	out.AttemptsAllowed = cloneInt(q.AttemptsAllowed)
	if q.Questions != nil {
		out.Questions = make([]Question, len(q.Questions))
		for i, question := range q.Questions {
			out.Questions[i] = question.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the question.
func (q Question) Clone() Question {
	out := q
	if q.Options != nil {
		out.Options = append([]Option(nil), q.Options...)
	}
	if q.Pairs != nil {
		out.Pairs = append([]Pair(nil), q.Pairs...)
	}
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// IntPtr is a small helper for optional quiz settings.
func IntPtr(v int) *int {
	return &v
}

// Answer is what a player submitted for one question. Value carries an
// option id, a "true"/"false" literal or free text; Matches maps pair id to
// the chosen right-hand text.
type Answer struct {
	Value   string            `json:"value,omitempty"`
	Matches map[string]string `json:"matches,omitempty"`
}

// Empty reports whether nothing was answered.
func (a Answer) Empty() bool {
	return a.Value == "" && len(a.Matches) == 0
}

// AnswerRecord is the per-question outcome kept in a Result.
type AnswerRecord struct {
	QuestionID string `json:"questionId"`
	UserAnswer Answer `json:"userAnswer"`
	IsCorrect  bool   `json:"isCorrect"`
}

// Result is the immutable scored outcome of one attempt.
type Result struct {
	QuizID         string         `json:"quizId"`
	Score          float64        `json:"score"`
	CorrectAnswers int            `json:"correctAnswers"`
	TotalQuestions int            `json:"totalQuestions"`
	EarnedPoints   int            `json:"earnedPoints"`
	TotalPoints    int            `json:"totalPoints"`
	TimeSpent      int            `json:"timeSpent"` // seconds
	Passed         *bool          `json:"passed,omitempty"`
	Answers        []AnswerRecord `json:"answers"`
	SubmittedAt    time.Time      `json:"submittedAt"`
}

// GradeOutcome is what the external grading endpoint reports back.
type GradeOutcome struct {
	Passed bool `json:"passed"`
}
