package models

// Confidence is the scorer's judgement of how confident an answer sounded
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// QuestionScore is the evaluation of a single answer
type QuestionScore struct {
	Score      int        `json:"score"`
	Feedback   string     `json:"feedback"`
	Confidence Confidence `json:"confidence"`
}

// ScoreSummary aggregates an interview evaluation
type ScoreSummary struct {
	Total          int      `json:"total"`
	Avg            float64  `json:"avg"`
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"improvements"`
	ConfidenceTips []string `json:"confidenceTips"`
}

// ScoreResult is the evaluated outcome of a completed interview
type ScoreResult struct {
	PerQuestion []QuestionScore `json:"perQuestion"`
	Summary     ScoreSummary    `json:"summary"`
}
