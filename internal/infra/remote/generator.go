package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lms-quiz-service/internal/app"
	"lms-quiz-service/internal/domain"
)

// Generator asks the AI content service to draft quiz questions.
type Generator struct {
	client
}

func NewGenerator(baseURL string, timeout time.Duration, signer *TokenSigner) *Generator {
	return &Generator{client: newClient(baseURL, timeout, signer)}
}

type generateRequest struct {
	Action        string              `json:"action"`
	Context       string              `json:"context"`
	QuestionCount int                 `json:"questionCount"`
	QuestionType  domain.QuestionType `json:"questionType,omitempty"`
}

type generateResponse struct {
	Content struct {
		Questions []domain.Question `json:"questions"`
	} `json:"content"`
}

func (g *Generator) GenerateQuestions(ctx context.Context, req app.GenerationRequest) ([]domain.Question, error) {
	var resp generateResponse
	err := g.postJSON(ctx, "/generate", "quiz-generator", generateRequest{
		Action:        "quiz",
		Context:       generationContext(req),
		QuestionCount: req.QuestionCount,
		QuestionType:  req.QuestionType,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Content.Questions) == 0 {
		return nil, fmt.Errorf("generator returned no questions")
	}
	return resp.Content.Questions, nil
}

func generationContext(req app.GenerationRequest) string {
	parts := make([]string, 0, 2)
	if t := strings.TrimSpace(req.Title); t != "" {
		parts = append(parts, "Quiz title: "+t)
	}
	if d := strings.TrimSpace(req.Description); d != "" {
		parts = append(parts, "Description: "+d)
	}
	return strings.Join(parts, "\n")
}
