package interview

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/interview-engine/internal/llm"
)

func TestLLMQuestionProvider_Questions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		count   int
		want    []string
	}{
		{
			name:    "bare array",
			content: `["What is a closure?", "Explain the event loop."]`,
			count:   10,
			want:    []string{"What is a closure?", "Explain the event loop."},
		},
		{
			name:    "wrapped in prose",
			content: "Sure! Here are your questions:\n```json\n[\"Q1\", \"Q2\"]\n```",
			count:   10,
			want:    []string{"Q1", "Q2"},
		},
		{
			name:    "object with questions field",
			content: `{"questions": ["Q1", "Q2", "Q3"]}`,
			count:   10,
			want:    []string{"Q1", "Q2", "Q3"},
		},
		{
			name:    "non strings and blanks dropped",
			content: `["  Q1  ", 42, "", null, "   ", {"q": 1}, "Q2"]`,
			count:   10,
			want:    []string{"Q1", "Q2"},
		},
		{
			name:    "truncated to count",
			content: `["Q1", "Q2", "Q3", "Q4"]`,
			count:   2,
			want:    []string{"Q1", "Q2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(tt.content)})
			p := NewLLMQuestionProvider(mock)

			got, err := p.Questions(context.Background(), QuestionRequest{Skill: "JavaScript", Difficulty: "medium", Count: tt.count})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLLMQuestionProvider_Prompt(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`["Q1"]`)})
	p := NewLLMQuestionProvider(mock)

	_, err := p.Questions(context.Background(), QuestionRequest{Skill: "Go,SQL", Difficulty: "hard", Count: 10})
	require.NoError(t, err)

	require.Equal(t, 1, mock.CallCount())
	prompt := mock.Calls[0].Messages[0].Content
	assert.Contains(t, prompt, "Generate exactly 10 concise, distinct interview questions.")
	assert.Contains(t, prompt, "- Skill: Go,SQL")
	assert.Contains(t, prompt, "- Difficulty: hard")
}

func TestLLMQuestionProvider_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
		reason  Reason
		message string
	}{
		{name: "empty list", content: `[]`, reason: ReasonEmpty, message: "No questions generated"},
		{name: "only blanks", content: `["", "  ", 3]`, reason: ReasonEmpty, message: "No questions generated"},
		{name: "prose", content: `I cannot help with that.`, reason: ReasonMalformed, message: "Model returned non-JSON output"},
		{name: "wrong shape", content: `{"items": ["Q1"]}`, reason: ReasonEmpty, message: "No questions generated"},
		{name: "vendor error", err: &llm.ErrRateLimit{Err: errors.New("429")}, reason: ReasonUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(tt.content), Err: tt.err})
			p := NewLLMQuestionProvider(mock)

			_, err := p.Questions(context.Background(), QuestionRequest{Skill: "Go", Difficulty: "easy", Count: 10})

			var qErr *QuestionError
			require.True(t, errors.As(err, &qErr), "expected QuestionError, got %v", err)
			assert.Equal(t, tt.reason, qErr.Reason)
			if tt.message != "" {
				assert.Equal(t, tt.message, qErr.Message)
			}
		})
	}
}

func TestQuestionRequest_Validate(t *testing.T) {
	mock := llm.NewMockProvider()
	p := NewLLMQuestionProvider(mock)

	for _, req := range []QuestionRequest{
		{Skill: "", Difficulty: "easy", Count: 10},
		{Skill: "Go", Difficulty: " ", Count: 10},
		{Skill: "Go", Difficulty: "easy", Count: 0},
	} {
		_, err := p.Questions(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
	assert.Zero(t, mock.CallCount(), "invalid requests must not reach the model")
}
