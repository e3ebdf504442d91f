package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/model"
)

// Personalized question defaults.
const (
	DefaultSkillLevel    = "intermediate"
	DefaultQuestionCount = 5
)

// DefaultInterests is used when a personalized request names no interests.
var DefaultInterests = []string{"Programming"}

// QuestionBankClient fetches interview questions from the question bank.
type QuestionBankClient struct {
	client  *http.Client
	baseURL string
}

func NewQuestionBankClient(baseURL string, timeout time.Duration) *QuestionBankClient {
	return &QuestionBankClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type questionsResponse struct {
	Questions []model.Question `json:"questions"`
}

// ListQuestions returns the default question set.
func (c *QuestionBankClient) ListQuestions(ctx context.Context) ([]model.Question, error) {
	var res questionsResponse
	if err := doJSON(ctx, c.client, "question bank", http.MethodGet, c.baseURL+"/questions", nil, &res); err != nil {
		return nil, apperr.Unavailable("client.ListQuestions", err)
	}
	return checkQuestions("client.ListQuestions", res.Questions)
}

// ListPersonalized returns questions tailored to interests and skill level.
// Zero values fall back to the defaults.
func (c *QuestionBankClient) ListPersonalized(ctx context.Context, interests []string, skillLevel string, count int) ([]model.Question, error) {
	body := model.PersonalizedQuestionsRequest{
		Interests:  interests,
		SkillLevel: skillLevel,
		Count:      count,
	}
	if len(body.Interests) == 0 {
		body.Interests = DefaultInterests
	}
	if body.SkillLevel == "" {
		body.SkillLevel = DefaultSkillLevel
	}
	if body.Count <= 0 {
		body.Count = DefaultQuestionCount
	}

	var res questionsResponse
	if err := doJSON(ctx, c.client, "question bank", http.MethodPost, c.baseURL+"/questions/personalized", body, &res); err != nil {
		return nil, apperr.Unavailable("client.ListPersonalized", err)
	}
	return checkQuestions("client.ListPersonalized", res.Questions)
}

func checkQuestions(op string, qs []model.Question) ([]model.Question, error) {
	for i, q := range qs {
		if strings.TrimSpace(q.Text) == "" {
			return nil, apperr.Unavailable(op, fmt.Errorf("question %d has no text", i))
		}
		if q.Difficulty != "" && !q.Difficulty.Valid() {
			return nil, apperr.Unavailable(op, fmt.Errorf("question %d has unknown difficulty %q", i, q.Difficulty))
		}
	}
	return qs, nil
}
