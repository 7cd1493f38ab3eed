package interview

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/interview-engine/internal/llm"
	"github.com/terra-clan/interview-engine/internal/models"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestCleanScore_ClampsScores(t *testing.T) {
	raw := decode(t, `{"perQuestion":[
		{"score":15,"feedback":"great","confidence":"high"},
		{"score":-3,"feedback":"weak","confidence":"low"},
		{"score":"7.9","feedback":"ok","confidence":"MEDIUM"},
		{"score":"n/a","feedback":"  ","confidence":"unsure"}
	],"summary":{"total":150,"avg":12}}`)

	res, ok := CleanScore(raw, 10)
	require.True(t, ok)
	require.Len(t, res.PerQuestion, 4)

	assert.Equal(t, 10, res.PerQuestion[0].Score)
	assert.Equal(t, 0, res.PerQuestion[1].Score)
	assert.Equal(t, 7, res.PerQuestion[2].Score)
	assert.Equal(t, models.ConfidenceMedium, res.PerQuestion[2].Confidence)
	assert.Equal(t, 0, res.PerQuestion[3].Score)
	assert.Equal(t, "Feedback for question 4", res.PerQuestion[3].Feedback)
	assert.Equal(t, models.ConfidenceMedium, res.PerQuestion[3].Confidence)

	assert.Equal(t, 100, res.Summary.Total)
	assert.Equal(t, 10.0, res.Summary.Avg)
}

func TestCleanScore_TruncatesToQuestionCount(t *testing.T) {
	raw := decode(t, `{"perQuestion":[{"score":1},{"score":2},{"score":3}],"summary":{"total":-5,"avg":-1}}`)

	res, ok := CleanScore(raw, 2)
	require.True(t, ok)
	assert.Len(t, res.PerQuestion, 2)
	assert.Equal(t, 0, res.Summary.Total)
	assert.Equal(t, 0.0, res.Summary.Avg)
}

func TestCleanScore_SummaryLists(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		check   func(t *testing.T, s models.ScoreSummary)
	}{
		{
			name:    "missing strengths uses fallback",
			summary: `{"improvements":["x"],"confidenceTips":["y"]}`,
			check: func(t *testing.T, s models.ScoreSummary) {
				assert.Equal(t, []string{"Interview completed"}, s.Strengths)
				assert.Equal(t, []string{"x"}, s.Improvements)
			},
		},
		{
			name:    "missing summary uses every fallback",
			summary: `null`,
			check: func(t *testing.T, s models.ScoreSummary) {
				assert.Equal(t, []string{"Interview completed"}, s.Strengths)
				assert.Equal(t, []string{"Continue practicing"}, s.Improvements)
				assert.Equal(t, []string{"Practice more"}, s.ConfidenceTips)
			},
		},
		{
			name:    "non list uses fallback",
			summary: `{"strengths":"clear","improvements":{},"confidenceTips":3}`,
			check: func(t *testing.T, s models.ScoreSummary) {
				assert.Equal(t, []string{"Interview completed"}, s.Strengths)
				assert.Equal(t, []string{"Continue practicing"}, s.Improvements)
				assert.Equal(t, []string{"Practice more"}, s.ConfidenceTips)
			},
		},
		{
			name:    "falsy entries dropped after capping",
			summary: `{"strengths":["a","",null,"b",false,"c","d"]}`,
			check: func(t *testing.T, s models.ScoreSummary) {
				assert.Equal(t, []string{"a", "b"}, s.Strengths)
			},
		},
		{
			name:    "capped at five",
			summary: `{"improvements":["1","2","3","4","5","6"]}`,
			check: func(t *testing.T, s models.ScoreSummary) {
				assert.Equal(t, []string{"1", "2", "3", "4", "5"}, s.Improvements)
			},
		},
		{
			name:    "empty list stays empty",
			summary: `{"confidenceTips":[]}`,
			check: func(t *testing.T, s models.ScoreSummary) {
				assert.NotNil(t, s.ConfidenceTips)
				assert.Empty(t, s.ConfidenceTips)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := decode(t, `{"perQuestion":[],"summary":`+tt.summary+`}`)
			res, ok := CleanScore(raw, 1)
			require.True(t, ok)
			tt.check(t, res.Summary)
		})
	}
}

func TestCleanScore_RejectsMissingPerQuestion(t *testing.T) {
	for _, payload := range []string{`{"summary":{}}`, `{"perQuestion":"all good"}`} {
		_, ok := CleanScore(decode(t, payload), 3)
		assert.False(t, ok, payload)
	}
}

func scoreRequest() ScoreRequest {
	return ScoreRequest{
		Skill:      "Go",
		Difficulty: "hard",
		Questions:  []string{"What is a goroutine?", "What is a channel?"},
		Answers:    []string{"A lightweight thread", ""},
	}
}

func TestLLMScorer_Score(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(
		"Here is the evaluation:\n" +
			`{"perQuestion":[{"score":8,"feedback":"Good","confidence":"high"},{"score":0,"feedback":"","confidence":"low"}],` +
			`"summary":{"total":8,"avg":4,"strengths":["Concise"]}}`,
	)})

	res, err := NewLLMScorer(mock).Score(context.Background(), scoreRequest())
	require.NoError(t, err)

	assert.Equal(t, 8, res.PerQuestion[0].Score)
	assert.Equal(t, "Feedback for question 2", res.PerQuestion[1].Feedback)
	assert.Equal(t, 8, res.Summary.Total)
	assert.Equal(t, []string{"Continue practicing"}, res.Summary.Improvements)

	prompt := mock.Calls[0].Messages[0].Content
	assert.Contains(t, prompt, "Score these 2 interview answers for Go at hard level.")
	assert.Contains(t, prompt, "A2: No answer")
	assert.Equal(t, 0.3, mock.Calls[0].Temperature)
}

func TestLLMScorer_PartialInterviewPrompt(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"perQuestion":[]}`)})

	req := scoreRequest()
	req.IsPartialInterview = true
	req.QuestionsAttempted = 2
	req.TotalQuestions = 10

	_, err := NewLLMScorer(mock).Score(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, mock.Calls[0].Messages[0].Content, "PARTIAL INTERVIEW: 2/10 questions.")
}

func TestLLMScorer_Failures(t *testing.T) {
	unconfigured, err := llm.NewProvider(context.Background(), llm.DefaultConfig(), nil)
	require.NoError(t, err)

	tests := []struct {
		name     string
		provider llm.Provider
		reason   Reason
		message  string
	}{
		{
			name:     "missing credential",
			provider: unconfigured,
			reason:   ReasonUnconfigured,
			message:  "Server misconfigured: missing GEMINI_API_KEY",
		},
		{
			name:     "non json output",
			provider: llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`I think they did fine`)}),
			reason:   ReasonMalformed,
			message:  "Model returned non-JSON output",
		},
		{
			name:     "malformed json",
			provider: llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`result: {"perQuestion": [}`)}),
			reason:   ReasonMalformed,
			message:  "Model returned malformed JSON",
		},
		{
			name:     "empty output",
			provider: llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(``)}),
			reason:   ReasonMalformed,
			message:  "Empty response from model",
		},
		{
			name:     "missing perQuestion",
			provider: llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"summary":{}}`)}),
			reason:   ReasonEmpty,
			message:  "No scoring data generated",
		},
		{
			name:     "vendor down",
			provider: llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("503")}}),
			reason:   ReasonUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMScorer(tt.provider).Score(context.Background(), scoreRequest())

			var scoreErr *ScoringError
			require.True(t, errors.As(err, &scoreErr), "expected ScoringError, got %v", err)
			assert.Equal(t, tt.reason, scoreErr.Reason)
			if tt.message != "" {
				assert.Equal(t, tt.message, scoreErr.Message)
			}
		})
	}
}

func TestScoreRequest_Validate(t *testing.T) {
	req := scoreRequest()
	req.Answers = req.Answers[:1]
	assert.ErrorIs(t, req.Validate(), ErrInvalidRequest)

	req = scoreRequest()
	req.Skill = " "
	assert.ErrorIs(t, req.Validate(), ErrInvalidRequest)

	req = scoreRequest()
	assert.NoError(t, req.Validate())
	assert.False(t, strings.Contains(scoringPrompt(req), "PARTIAL"))
}
