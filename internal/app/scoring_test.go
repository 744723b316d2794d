package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms-quiz-service/internal/domain"
)

func TestScoreQuizTrueFalseWrong(t *testing.T) {
	quiz := domain.Quiz{ID: "quiz-tf", Questions: []domain.Question{{
		ID: "q1", Type: domain.TrueFalse, Question: "Go has generics", Points: 1, CorrectAnswer: "true",
	}}}

	result := ScoreQuiz(quiz, map[string]domain.Answer{"q1": {Value: "false"}}, 0)

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, 0, result.CorrectAnswers)
	require.Len(t, result.Answers, 1)
	assert.False(t, result.Answers[0].IsCorrect)
	assert.Nil(t, result.Passed)
}

func TestScoreQuizMultipleChoiceAllCorrect(t *testing.T) {
	quiz := domain.Quiz{ID: "quiz-mc", Questions: []domain.Question{
		{ID: "q1", Type: domain.MultipleChoice, Question: "1+1", Points: 5, Options: []domain.Option{
			{ID: "a", Text: "2", IsCorrect: true}, {ID: "b", Text: "3"},
		}},
		{ID: "q2", Type: domain.MultipleChoice, Question: "2+2", Points: 5, Options: []domain.Option{
			{ID: "c", Text: "5"}, {ID: "d", Text: "4", IsCorrect: true},
		}},
	}}

	result := ScoreQuiz(quiz, map[string]domain.Answer{"q1": {Value: "a"}, "q2": {Value: "d"}}, 90*time.Second)

	assert.Equal(t, 100.0, result.Score)
	assert.Equal(t, 2, result.CorrectAnswers)
	assert.Equal(t, 10, result.EarnedPoints)
	assert.Equal(t, 10, result.TotalPoints)
	assert.Equal(t, 90, result.TimeSpent)
}

func TestScoreQuizUnansweredCountsIncorrect(t *testing.T) {
	quiz := validQuiz()

	result := ScoreQuiz(quiz, nil, 0)

	assert.Equal(t, 0, result.CorrectAnswers)
	assert.Equal(t, len(quiz.Questions), result.TotalQuestions)
	for _, record := range result.Answers {
		assert.False(t, record.IsCorrect, record.QuestionID)
	}
}

func TestScoreQuizMixedTypes(t *testing.T) {
	quiz := validQuiz()
	quiz.PassingScore = domain.IntPtr(75)

	answers := map[string]domain.Answer{
		"q1": {Value: "o1"},
		"q2": {Value: "false"},
		"q3": {Value: "NIL"},
		"q4": {Matches: map[string]string{"p1": "formatting", "p2": "formatting"}},
	}
	result := ScoreQuiz(quiz, answers, 0)

	assert.Equal(t, 3, result.CorrectAnswers)
	assert.Equal(t, 75.0, result.Score)
	require.NotNil(t, result.Passed)
	assert.True(t, *result.Passed)
	assert.False(t, result.Answers[3].IsCorrect)
}

func TestScoreQuizShortAnswerIgnoresCaseOnly(t *testing.T) {
	quiz := domain.Quiz{ID: "quiz-sa", Questions: []domain.Question{{
		ID: "q1", Type: domain.ShortAnswer, Question: "Capital of France", Points: 1, CorrectAnswer: "Paris",
	}}}

	assert.True(t, ScoreQuiz(quiz, map[string]domain.Answer{"q1": {Value: "PARIS"}}, 0).Answers[0].IsCorrect)
	assert.False(t, ScoreQuiz(quiz, map[string]domain.Answer{"q1": {Value: "Paris "}}, 0).Answers[0].IsCorrect)
	assert.False(t, ScoreQuiz(quiz, map[string]domain.Answer{"q1": {Value: " paris"}}, 0).Answers[0].IsCorrect)
}

func TestScoreQuizIsIdempotent(t *testing.T) {
	quiz := validQuiz()
	answers := map[string]domain.Answer{"q1": {Value: "o2"}, "q3": {Value: "nil"}}

	first := ScoreQuiz(quiz, answers, time.Minute)
	second := ScoreQuiz(quiz, answers, time.Minute)

	assert.Equal(t, first, second)
}

func TestScoreQuizEmptyQuiz(t *testing.T) {
	result := ScoreQuiz(domain.Quiz{ID: "empty"}, map[string]domain.Answer{"x": {Value: "y"}}, 0)
	assert.Equal(t, 0.0, result.Score)
	assert.Empty(t, result.Answers)
}

func TestScoreQuizUnknownOption(t *testing.T) {
	quiz := validQuiz()
	result := ScoreQuiz(quiz, map[string]domain.Answer{"q1": {Value: "missing"}}, 0)
	assert.False(t, result.Answers[0].IsCorrect)
}
