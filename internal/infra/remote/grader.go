package remote

import (
	"context"
	"net/url"
	"time"

	"lms-quiz-service/internal/domain"
)

// Grader posts quiz results to the course progress service, which decides
// whether the lesson counts as completed.
type Grader struct {
	client
}

func NewGrader(baseURL string, timeout time.Duration, signer *TokenSigner) *Grader {
	return &Grader{client: newClient(baseURL, timeout, signer)}
}

type gradeRequest struct {
	QuizResult domain.Result `json:"quizResult"`
}

func (g *Grader) SubmitResult(ctx context.Context, lessonID string, result domain.Result) (domain.GradeOutcome, error) {
	var outcome domain.GradeOutcome
	err := g.postJSON(ctx, "/lessons/"+url.PathEscape(lessonID)+"/submit", lessonID, gradeRequest{QuizResult: result}, &outcome)
	return outcome, err
}
