package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/terra-clan/interview-engine/internal/llm"
	"github.com/terra-clan/interview-engine/internal/models"
)

const maxSummaryItems = 5

// Fallback summary lists used when the scorer omits a field
var (
	DefaultStrengths      = []string{"Interview completed"}
	DefaultImprovements   = []string{"Continue practicing"}
	DefaultConfidenceTips = []string{"Practice more"}
)

// ScoreRequest is the input of a Scorer
type ScoreRequest struct {
	Skill              string   `json:"skill"`
	Difficulty         string   `json:"difficulty"`
	Questions          []string `json:"questions"`
	Answers            []string `json:"answers"`
	IsPartialInterview bool     `json:"isPartialInterview,omitempty"`
	QuestionsAttempted int      `json:"questionsAttempted,omitempty"`
	TotalQuestions     int      `json:"totalQuestions,omitempty"`
}

// Validate checks the request before any network call
func (r *ScoreRequest) Validate() error {
	if strings.TrimSpace(r.Skill) == "" || strings.TrimSpace(r.Difficulty) == "" ||
		r.Questions == nil || r.Answers == nil {
		return fmt.Errorf("%w: skill, difficulty, questions and answers are required", ErrInvalidRequest)
	}
	if len(r.Questions) == 0 {
		return fmt.Errorf("%w: at least one question is required", ErrInvalidRequest)
	}
	if len(r.Questions) != len(r.Answers) {
		return fmt.Errorf("%w: questions and answers must have the same length", ErrInvalidRequest)
	}
	return nil
}

// Scorer evaluates a set of answers. It returns a cleaned result or a
// *ScoringError.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (*models.ScoreResult, error)
}

// scoringSchema only pins what cleaning cannot default
var scoringSchema = &llm.Schema{
	Name:        "interview-score",
	Description: "Per question scores and an interview summary",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"perQuestion": map[string]any{"type": "array"},
		},
		"required": []any{"perQuestion"},
	},
}

// LLMScorer scores answers with a language model
type LLMScorer struct {
	llm         llm.Provider
	temperature float64
}

// NewLLMScorer creates a Scorer backed by p
func NewLLMScorer(p llm.Provider) *LLMScorer {
	return &LLMScorer{llm: p, temperature: 0.3}
}

// Score implements Scorer
func (s *LLMScorer) Score(ctx context.Context, req ScoreRequest) (*models.ScoreResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	llmReq := llm.UserPrompt("", scoringPrompt(req))
	llmReq.Schema = scoringSchema
	llmReq.Temperature = s.temperature

	resp, err := s.llm.Generate(llm.WithPurpose(ctx, "scoring"), llmReq)
	if err != nil {
		reason, msg := classify(err, "No scoring data generated")
		return nil, &ScoringError{Reason: reason, Message: msg, Err: err}
	}

	var raw map[string]any
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, &ScoringError{Reason: ReasonMalformed, Message: "Model returned malformed JSON", Err: err}
	}

	result, ok := CleanScore(raw, len(req.Questions))
	if !ok {
		return nil, &ScoringError{Reason: ReasonEmpty, Message: "No scoring data generated"}
	}
	return result, nil
}

func scoringPrompt(req ScoreRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert technical interviewer. Score these %d interview answers for %s at %s level.\n",
		len(req.Questions), req.Skill, req.Difficulty)
	if req.IsPartialInterview {
		fmt.Fprintf(&b, "PARTIAL INTERVIEW: %d/%d questions.\n", req.QuestionsAttempted, req.TotalQuestions)
	}
	b.WriteString(`Return ONLY a strict JSON object. No extra text. Example:
{
  "perQuestion": [{"score": 8, "feedback": "Good answer", "confidence": "high"}],
  "summary": {"total": 80, "avg": 8.0, "strengths": ["Clear"], "improvements": ["Practice"], "confidenceTips": ["Study"]}
}

Q&A Pairs:
`)
	for i, q := range req.Questions {
		answer := strings.TrimSpace(req.Answers[i])
		if answer == "" {
			answer = "No answer"
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s", i+1, q, i+1, answer)
	}
	return b.String()
}

// CleanScore converts a loosely typed scorer payload into a ScoreResult.
// It reports false only when perQuestion is missing or not a list; every
// other field gets a default.
func CleanScore(raw map[string]any, questionCount int) (*models.ScoreResult, bool) {
	items, ok := raw["perQuestion"].([]any)
	if !ok {
		return nil, false
	}
	if len(items) > questionCount {
		items = items[:questionCount]
	}

	result := &models.ScoreResult{
		PerQuestion: make([]models.QuestionScore, 0, len(items)),
	}
	for i, item := range items {
		fields, _ := item.(map[string]any)
		result.PerQuestion = append(result.PerQuestion, cleanQuestionScore(fields, i))
	}

	summary, _ := raw["summary"].(map[string]any)
	result.Summary = models.ScoreSummary{
		Total:          int(clamp(math.Floor(toNumber(summary["total"])), 0, float64(10*questionCount))),
		Avg:            clamp(toNumber(summary["avg"]), 0, 10),
		Strengths:      cleanList(summary["strengths"], DefaultStrengths),
		Improvements:   cleanList(summary["improvements"], DefaultImprovements),
		ConfidenceTips: cleanList(summary["confidenceTips"], DefaultConfidenceTips),
	}
	return result, true
}

func cleanQuestionScore(fields map[string]any, index int) models.QuestionScore {
	score := models.QuestionScore{
		Score:      int(clamp(math.Floor(toNumber(fields["score"])), 0, 10)),
		Feedback:   strings.TrimSpace(toText(fields["feedback"])),
		Confidence: models.ConfidenceMedium,
	}
	if score.Feedback == "" {
		score.Feedback = fmt.Sprintf("Feedback for question %d", index+1)
	}

	switch c := models.Confidence(strings.ToLower(toText(fields["confidence"]))); c {
	case models.ConfidenceLow, models.ConfidenceMedium, models.ConfidenceHigh:
		score.Confidence = c
	}
	return score
}

// cleanList keeps the first few truthy entries of a list, or returns a copy
// of fallback when v is not a list
func cleanList(v any, fallback []string) []string {
	items, ok := v.([]any)
	if !ok {
		return append([]string(nil), fallback...)
	}
	if len(items) > maxSummaryItems {
		items = items[:maxSummaryItems]
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(toText(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// toNumber coerces a decoded JSON value to a number; anything that is not
// numeric becomes 0
func toNumber(v any) float64 {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case json.Number:
		n, _ = t.Float64()
	case string:
		n, _ = strconv.ParseFloat(strings.TrimSpace(t), 64)
	case bool:
		if t {
			n = 1
		}
	}
	if math.IsNaN(n) {
		return 0
	}
	return n
}

// toText renders a decoded JSON value as text; falsy values become ""
func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
