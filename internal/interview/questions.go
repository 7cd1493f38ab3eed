package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/terra-clan/interview-engine/internal/llm"
)

// DefaultQuestionCount is the number of questions in an interview
const DefaultQuestionCount = 10

// QuestionRequest is the input of a QuestionProvider
type QuestionRequest struct {
	Skill      string `json:"skill"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

// Validate checks the request before any network call
func (r *QuestionRequest) Validate() error {
	if strings.TrimSpace(r.Skill) == "" || strings.TrimSpace(r.Difficulty) == "" {
		return fmt.Errorf("%w: skill and difficulty are required", ErrInvalidRequest)
	}
	if r.Count <= 0 {
		return fmt.Errorf("%w: count must be positive", ErrInvalidRequest)
	}
	return nil
}

// QuestionProvider generates interview questions. It returns at most
// req.Count non-empty questions, or a *QuestionError.
type QuestionProvider interface {
	Questions(ctx context.Context, req QuestionRequest) ([]string, error)
}

// questionsSchema accepts a bare array or an object wrapping one; items are
// filtered to strings afterwards.
var questionsSchema = &llm.Schema{
	Name:        "interview-questions",
	Description: "A list of interview questions",
	Definition: map[string]any{
		"anyOf": []any{
			map[string]any{"type": "array"},
			map[string]any{
				"type":       "object",
				"properties": map[string]any{"questions": map[string]any{"type": "array"}},
				"required":   []any{"questions"},
			},
		},
	},
}

// LLMQuestionProvider generates questions with a language model
type LLMQuestionProvider struct {
	llm         llm.Provider
	temperature float64
}

// NewLLMQuestionProvider creates a QuestionProvider backed by p
func NewLLMQuestionProvider(p llm.Provider) *LLMQuestionProvider {
	return &LLMQuestionProvider{llm: p, temperature: 0.3}
}

// Questions implements QuestionProvider
func (q *LLMQuestionProvider) Questions(ctx context.Context, req QuestionRequest) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`You are an expert technical interviewer.
Generate exactly %d concise, distinct interview questions.
- Skill: %s
- Difficulty: %s
Return ONLY a strict JSON array of strings. No numbering, no extra text. Example:
["Question 1...", "Question 2...", "..."]`, req.Count, req.Skill, req.Difficulty)

	llmReq := llm.UserPrompt("", prompt)
	llmReq.Schema = questionsSchema
	llmReq.Temperature = q.temperature

	resp, err := q.llm.Generate(llm.WithPurpose(ctx, "questions"), llmReq)
	if err != nil {
		reason, msg := classify(err, "No questions generated")
		return nil, &QuestionError{Reason: reason, Message: msg, Err: err}
	}

	questions, err := parseQuestions(resp.Content, req.Count)
	if err != nil {
		return nil, &QuestionError{Reason: ReasonMalformed, Message: "Model returned malformed JSON", Err: err}
	}
	if len(questions) == 0 {
		return nil, &QuestionError{Reason: ReasonEmpty, Message: "No questions generated"}
	}
	return questions, nil
}

// parseQuestions keeps string items, trimmed and non-empty, up to limit
func parseQuestions(content json.RawMessage, limit int) ([]string, error) {
	var items []any
	if err := json.Unmarshal(content, &items); err != nil {
		var wrapped struct {
			Questions []any `json:"questions"`
		}
		if err := json.Unmarshal(content, &wrapped); err != nil {
			return nil, err
		}
		items = wrapped.Questions
	}

	questions := make([]string, 0, limit)
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		questions = append(questions, s)
		if len(questions) == limit {
			break
		}
	}
	return questions, nil
}
