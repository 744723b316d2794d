package app

import (
	"fmt"
	"strings"

	"lms-quiz-service/internal/domain"
)

// ValidateQuiz checks a quiz for structural completeness and returns
// human-readable problems in rule order. An empty slice means the quiz can be
// published. It has no side effects and is cheap enough to run on every edit.
func ValidateQuiz(quiz domain.Quiz) []string {
	problems := []string{}

	if len(quiz.Questions) == 0 {
		problems = append(problems, "Quiz must have at least one question")
	}

	for i, q := range quiz.Questions {
		label := fmt.Sprintf("Question %d", i+1)

		if strings.TrimSpace(q.Question) == "" {
			problems = append(problems, label+": question text is required")
		}
		if q.Type == "" {
			problems = append(problems, label+": question type is required")
		}
		// Zero points is rejected along with missing points.
		if q.Points == 0 {
			problems = append(problems, label+": must have points assigned")
		} else if q.Points < 0 {
			problems = append(problems, label+": points must be positive")
		}

		switch q.Type {
		case domain.MultipleChoice:
			if len(q.Options) < 2 {
				problems = append(problems, label+": must have at least 2 options")
			}
			if !hasCorrectOption(q.Options) {
				problems = append(problems, label+": must have at least one correct answer")
			}
		case domain.TrueFalse:
			if q.CorrectAnswer != "true" && q.CorrectAnswer != "false" {
				problems = append(problems, label+": correct answer must be true or false")
			}
		case domain.ShortAnswer:
			if strings.TrimSpace(q.CorrectAnswer) == "" {
				problems = append(problems, label+": correct answer is required")
			}
		case domain.Matching:
			if len(q.Pairs) < 2 {
				problems = append(problems, label+": must have at least 2 pairs")
			}
			for _, p := range q.Pairs {
				if strings.TrimSpace(p.Left) == "" || strings.TrimSpace(p.Right) == "" {
					problems = append(problems, label+": every pair needs both sides")
					break
				}
			}
		case "":
		default:
			problems = append(problems, fmt.Sprintf("%s: unknown question type %q", label, q.Type))
		}
	}

	if quiz.TimeLimit != nil && *quiz.TimeLimit <= 0 {
		problems = append(problems, "Time limit must be a positive number of minutes")
	}
	if quiz.PassingScore != nil && (*quiz.PassingScore < 0 || *quiz.PassingScore > 100) {
		problems = append(problems, "Passing score must be between 0 and 100")
	}
	if quiz.AttemptsAllowed != nil && *quiz.AttemptsAllowed <= 0 {
		problems = append(problems, "Attempts allowed must be a positive number")
	}

	return problems
}

func hasCorrectOption(options []domain.Option) bool {
	for _, o := range options {
		if o.IsCorrect {
			return true
		}
	}
	return false
}
