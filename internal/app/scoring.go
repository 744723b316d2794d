package app

import (
	"math"
	"strings"
	"time"

	"lms-quiz-service/internal/domain"
)

// ScoreQuiz grades a set of answers against a quiz. It is pure: the same
// quiz and answers always give the same result. Unanswered questions count
// as incorrect. SubmittedAt is left for the caller to stamp.
func ScoreQuiz(quiz domain.Quiz, answers map[string]domain.Answer, timeSpent time.Duration) domain.Result {
	result := domain.Result{
		QuizID:         quiz.ID,
		TotalQuestions: len(quiz.Questions),
		TimeSpent:      int(math.Round(timeSpent.Seconds())),
		Answers:        make([]domain.AnswerRecord, 0, len(quiz.Questions)),
	}

	for _, q := range quiz.Questions {
		answer := answers[q.ID]
		correct := isAnswerCorrect(q, answer)
		if correct {
			result.CorrectAnswers++
			result.EarnedPoints += q.Points
		}
		result.TotalPoints += q.Points
		result.Answers = append(result.Answers, domain.AnswerRecord{
			QuestionID: q.ID,
			UserAnswer: answer,
			IsCorrect:  correct,
		})
	}

	if result.TotalQuestions > 0 {
		result.Score = 100 * float64(result.CorrectAnswers) / float64(result.TotalQuestions)
	}
	if quiz.PassingScore != nil {
		passed := result.Score >= float64(*quiz.PassingScore)
		result.Passed = &passed
	}
	return result
}

func isAnswerCorrect(q domain.Question, answer domain.Answer) bool {
	if answer.Empty() {
		return false
	}
	switch q.Type {
	case domain.MultipleChoice:
		for _, o := range q.Options {
			if o.ID == answer.Value {
				return o.IsCorrect
			}
		}
		return false
	case domain.TrueFalse:
		return answer.Value == q.CorrectAnswer
	case domain.ShortAnswer:
		return q.CorrectAnswer != "" && strings.EqualFold(answer.Value, q.CorrectAnswer)
	case domain.Matching:
		if len(q.Pairs) == 0 {
			return false
		}
		for _, p := range q.Pairs {
			if answer.Matches[p.ID] != p.Right {
				return false
			}
		}
		return true
	}
	return false
}

// correctAnswerText renders the expected answer for review screens.
func correctAnswerText(q domain.Question) string {
	switch q.Type {
	case domain.MultipleChoice:
		texts := make([]string, 0, 1)
		for _, o := range q.Options {
			if o.IsCorrect {
				texts = append(texts, o.Text)
			}
		}
		return strings.Join(texts, ", ")
	case domain.Matching:
		parts := make([]string, 0, len(q.Pairs))
		for _, p := range q.Pairs {
			parts = append(parts, p.Left+" → "+p.Right)
		}
		return strings.Join(parts, ", ")
	}
	return q.CorrectAnswer
}
