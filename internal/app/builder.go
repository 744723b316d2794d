package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"lms-quiz-service/internal/domain"
)

// QuestionGenerator is the AI collaborator that drafts questions for a quiz.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, req GenerationRequest) ([]domain.Question, error)
}

// GenerationRequest is the context sent to the generator.
type GenerationRequest struct {
	Title         string              `json:"title"`
	Description   string              `json:"description,omitempty"`
	QuestionCount int                 `json:"questionCount"`
	QuestionType  domain.QuestionType `json:"questionType,omitempty"`
}

// QuestionPatch updates the non-nil fields of a question.
type QuestionPatch struct {
	Type          *domain.QuestionType `json:"type,omitempty"`
	Question      *string              `json:"question,omitempty"`
	Points        *int                 `json:"points,omitempty"`
	Explanation   *string              `json:"explanation,omitempty"`
	CorrectAnswer *string              `json:"correctAnswer,omitempty"`
}

// OptionPatch updates the non-nil fields of an option.
type OptionPatch struct {
	Text      *string `json:"text,omitempty"`
	IsCorrect *bool   `json:"isCorrect,omitempty"`
}

// PairPatch updates the non-nil fields of a matching pair.
type PairPatch struct {
	Left  *string `json:"left,omitempty"`
	Right *string `json:"right,omitempty"`
}

// Builder applies authoring operations to a quiz and re-validates after
// every mutation. Validation problems never block editing. A Builder is not
// safe for concurrent use.
type Builder struct {
	quiz     domain.Quiz
	problems []string
	newID    func() string
}

// NewBuilder starts editing a copy of quiz.
func NewBuilder(quiz domain.Quiz) *Builder {
	return newBuilderWithIDs(quiz, uuid.NewString)
}

func newBuilderWithIDs(quiz domain.Quiz, newID func() string) *Builder {
	b := &Builder{quiz: quiz.Clone(), newID: newID}
	if b.quiz.Questions == nil {
		b.quiz.Questions = []domain.Question{}
	}
	b.revalidate()
	return b
}

// Quiz returns a copy of the quiz being edited.
func (b *Builder) Quiz() domain.Quiz {
	return b.quiz.Clone()
}

// Errors returns the validation problems after the latest mutation.
func (b *Builder) Errors() []string {
	return append([]string(nil), b.problems...)
}

// Valid reports whether the quiz currently passes validation.
func (b *Builder) Valid() bool {
	return len(b.problems) == 0
}

func (b *Builder) revalidate() {
	b.problems = ValidateQuiz(b.quiz)
}

// AddQuestion appends a blank question of the given type.
func (b *Builder) AddQuestion(t domain.QuestionType) (domain.Question, error) {
	if !t.Known() {
		return domain.Question{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, t)
	}
	q := domain.Question{ID: b.newID(), Type: t, Points: 1}
	b.resetVariant(&q)
	b.quiz.Questions = append(b.quiz.Questions, q)
	b.revalidate()
	return q.Clone(), nil
}

func (b *Builder) resetVariant(q *domain.Question) {
	q.Options = nil
	q.Pairs = nil
	q.CorrectAnswer = ""
	switch q.Type {
	case domain.MultipleChoice:
		q.Options = []domain.Option{{ID: b.newID()}, {ID: b.newID()}}
	case domain.TrueFalse:
		q.CorrectAnswer = "true"
	case domain.Matching:
		q.Pairs = []domain.Pair{{ID: b.newID()}, {ID: b.newID()}}
	}
}

// DeleteQuestion removes a question.
func (b *Builder) DeleteQuestion(questionID string) error {
	idx := b.indexOf(questionID)
	if idx < 0 {
		return domain.ErrQuestionNotFound
	}
	b.quiz.Questions = append(b.quiz.Questions[:idx], b.quiz.Questions[idx+1:]...)
	b.revalidate()
	return nil
}

// DuplicateQuestion inserts a copy right after the source question. The copy
// and its options get fresh ids.
func (b *Builder) DuplicateQuestion(questionID string) (domain.Question, error) {
	idx := b.indexOf(questionID)
	if idx < 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	dup := b.withFreshIDs(b.quiz.Questions[idx])

	questions := make([]domain.Question, 0, len(b.quiz.Questions)+1)
	questions = append(questions, b.quiz.Questions[:idx+1]...)
	questions = append(questions, dup)
	questions = append(questions, b.quiz.Questions[idx+1:]...)
	b.quiz.Questions = questions
	b.revalidate()
	return dup.Clone(), nil
}

// UpdateQuestion applies a patch. Changing the type resets the answer fields.
func (b *Builder) UpdateQuestion(questionID string, patch QuestionPatch) error {
	q, err := b.question(questionID)
	if err != nil {
		return err
	}
	if patch.Type != nil && *patch.Type != q.Type {
		if !patch.Type.Known() {
			return fmt.Errorf("%w: %q", domain.ErrUnsupportedType, *patch.Type)
		}
		q.Type = *patch.Type
		b.resetVariant(q)
	}
	if patch.Question != nil {
		q.Question = *patch.Question
	}
	if patch.Points != nil {
		q.Points = *patch.Points
	}
	if patch.Explanation != nil {
		q.Explanation = *patch.Explanation
	}
	if patch.CorrectAnswer != nil {
		q.CorrectAnswer = *patch.CorrectAnswer
	}
	b.revalidate()
	return nil
}

// AddOption appends an empty option to a multiple choice question.
func (b *Builder) AddOption(questionID string) (domain.Option, error) {
	q, err := b.question(questionID)
	if err != nil {
		return domain.Option{}, err
	}
	if q.Type != domain.MultipleChoice {
		return domain.Option{}, domain.ErrUnsupportedType
	}
	opt := domain.Option{ID: b.newID()}
	q.Options = append(q.Options, opt)
	b.revalidate()
	return opt, nil
}

// UpdateOption applies a patch to one option.
func (b *Builder) UpdateOption(questionID, optionID string, patch OptionPatch) error {
	q, err := b.question(questionID)
	if err != nil {
		return err
	}
	for i := range q.Options {
		if q.Options[i].ID != optionID {
			continue
		}
		if patch.Text != nil {
			q.Options[i].Text = *patch.Text
		}
		if patch.IsCorrect != nil {
			q.Options[i].IsCorrect = *patch.IsCorrect
		}
		b.revalidate()
		return nil
	}
	return domain.ErrOptionNotFound
}

// DeleteOption removes one option.
func (b *Builder) DeleteOption(questionID, optionID string) error {
	q, err := b.question(questionID)
	if err != nil {
		return err
	}
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			q.Options = append(q.Options[:i], q.Options[i+1:]...)
			b.revalidate()
			return nil
		}
	}
	return domain.ErrOptionNotFound
}

// AddPair appends an empty pair to a matching question.
func (b *Builder) AddPair(questionID string) (domain.Pair, error) {
	q, err := b.question(questionID)
	if err != nil {
		return domain.Pair{}, err
	}
	if q.Type != domain.Matching {
		return domain.Pair{}, domain.ErrUnsupportedType
	}
	pair := domain.Pair{ID: b.newID()}
	q.Pairs = append(q.Pairs, pair)
	b.revalidate()
	return pair, nil
}

// UpdatePair applies a patch to one matching pair.
func (b *Builder) UpdatePair(questionID, pairID string, patch PairPatch) error {
	q, err := b.question(questionID)
	if err != nil {
		return err
	}
	for i := range q.Pairs {
		if q.Pairs[i].ID != pairID {
			continue
		}
		if patch.Left != nil {
			q.Pairs[i].Left = *patch.Left
		}
		if patch.Right != nil {
			q.Pairs[i].Right = *patch.Right
		}
		b.revalidate()
		return nil
	}
	return domain.ErrOptionNotFound
}

// DeletePair removes one matching pair.
func (b *Builder) DeletePair(questionID, pairID string) error {
	q, err := b.question(questionID)
	if err != nil {
		return err
	}
	for i := range q.Pairs {
		if q.Pairs[i].ID == pairID {
			q.Pairs = append(q.Pairs[:i], q.Pairs[i+1:]...)
			b.revalidate()
			return nil
		}
	}
	return domain.ErrOptionNotFound
}

// MoveQuestion splices the question at from out of the list and back in at
// to, keeping the relative order of everything else.
func (b *Builder) MoveQuestion(from, to int) error {
	n := len(b.quiz.Questions)
	if from < 0 || from >= n || to < 0 || to >= n {
		return domain.ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}
	moved := b.quiz.Questions[from]
	rest := append(b.quiz.Questions[:from:from], b.quiz.Questions[from+1:]...)

	questions := make([]domain.Question, 0, n)
	questions = append(questions, rest[:to]...)
	questions = append(questions, moved)
	questions = append(questions, rest[to:]...)
	b.quiz.Questions = questions
	b.revalidate()
	return nil
}

func (b *Builder) SetTitle(title string) {
	b.quiz.Title = title
	b.revalidate()
}

func (b *Builder) SetDescription(description string) {
	b.quiz.Description = description
	b.revalidate()
}

// SetTimeLimit sets the limit in minutes; nil makes the quiz untimed.
func (b *Builder) SetTimeLimit(minutes *int) {
	b.quiz.TimeLimit = copyIntPtr(minutes)
	b.revalidate()
}

func (b *Builder) SetPassingScore(percent *int) {
	b.quiz.PassingScore = copyIntPtr(percent)
	b.revalidate()
}

// SetAttemptsAllowed caps attempts; nil means unlimited.
func (b *Builder) SetAttemptsAllowed(attempts *int) {
	b.quiz.AttemptsAllowed = copyIntPtr(attempts)
	b.revalidate()
}

func (b *Builder) SetShuffleQuestions(on bool) {
	b.quiz.ShuffleQuestions = on
	b.revalidate()
}

func (b *Builder) SetShowCorrectAnswers(on bool) {
	b.quiz.ShowCorrectAnswers = on
	b.revalidate()
}

func (b *Builder) SetShowExplanations(on bool) {
	b.quiz.ShowExplanations = on
	b.revalidate()
}

// Generate asks the generator for count questions and appends them. Every
// generated question, option and pair gets a fresh id so nothing collides
// with what is already in the quiz.
func (b *Builder) Generate(ctx context.Context, gen QuestionGenerator, count int, t domain.QuestionType) ([]domain.Question, error) {
	if count <= 0 {
		return nil, fmt.Errorf("question count must be positive, got %d", count)
	}
	if t != "" && !t.Known() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, t)
	}
	generated, err := gen.GenerateQuestions(ctx, GenerationRequest{
		Title:         b.quiz.Title,
		Description:   b.quiz.Description,
		QuestionCount: count,
		QuestionType:  t,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	added := make([]domain.Question, 0, len(generated))
	for _, q := range generated {
		fresh := b.withFreshIDs(q)
		if fresh.Points == 0 {
			fresh.Points = 1
		}
		b.quiz.Questions = append(b.quiz.Questions, fresh)
		added = append(added, fresh.Clone())
	}
	b.revalidate()
	return added, nil
}

func (b *Builder) withFreshIDs(q domain.Question) domain.Question {
	out := q.Clone()
	out.ID = b.newID()
	for i := range out.Options {
		out.Options[i].ID = b.newID()
	}
	for i := range out.Pairs {
		out.Pairs[i].ID = b.newID()
	}
	return out
}

func (b *Builder) indexOf(questionID string) int {
	for i := range b.quiz.Questions {
		if b.quiz.Questions[i].ID == questionID {
			return i
		}
	}
	return -1
}

func (b *Builder) question(questionID string) (*domain.Question, error) {
	idx := b.indexOf(questionID)
	if idx < 0 {
		return nil, domain.ErrQuestionNotFound
	}
	return &b.quiz.Questions[idx], nil
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
