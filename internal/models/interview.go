package models

import "strings"

// Difficulty is the interview difficulty level
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalizes s and reports whether it is a known level
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	}
	return d, false
}

// InterviewStatus is the outcome state of an interview session
type InterviewStatus string

const (
	StatusInProgress InterviewStatus = "in_progress"
	StatusCompleted  InterviewStatus = "completed"
	StatusQuit       InterviewStatus = "quit"
)

// QuitReason is the code a user gives when leaving an interview early
type QuitReason string

const (
	QuitTooDifficult      QuitReason = "too_difficult"
	QuitNotEnoughTime     QuitReason = "not_enough_time"
	QuitTechnicalIssues   QuitReason = "technical_issues"
	QuitJustTesting       QuitReason = "just_testing"
	QuitChangedMind       QuitReason = "changed_mind"
	QuitWrongSkill        QuitReason = "wrong_skill"
	QuitPersonalEmergency QuitReason = "personal_emergency"
	QuitOther             QuitReason = "other"
)

// QuitReasonOption pairs a quit reason with its display label
type QuitReasonOption struct {
	ID    QuitReason `json:"id"`
	Label string     `json:"label"`
}

// QuitReasons lists every accepted quit reason in display order
var QuitReasons = []QuitReasonOption{
	{QuitTooDifficult, "Questions too difficult"},
	{QuitNotEnoughTime, "Not enough time"},
	{QuitTechnicalIssues, "Technical issues"},
	{QuitJustTesting, "Just testing the app"},
	{QuitChangedMind, "Changed my mind"},
	{QuitWrongSkill, "Wrong skill selected"},
	{QuitPersonalEmergency, "Personal emergency"},
	{QuitOther, "Other reason"},
}

// Valid reports whether r is one of QuitReasons
func (r QuitReason) Valid() bool {
	for _, opt := range QuitReasons {
		if opt.ID == r {
			return true
		}
	}
	return false
}

// InterviewRecord is the durable form of a finished or quit session.
// It is written once and never updated.
type InterviewRecord struct {
	User               User             `json:"user"`
	Skill              string           `json:"skill"`
	PrimarySkill       string           `json:"primary_skill"`
	Skills             []string         `json:"all_skills"`
	Difficulty         string           `json:"difficulty"`
	TotalScore         int              `json:"total_score"`
	AvgScore           float64          `json:"avg_score"`
	QuestionsAttempted int              `json:"questions_attempted"`
	TotalQuestions     int              `json:"total_questions"`
	IsCompleted        bool             `json:"is_completed"`
	QuitReason         QuitReason       `json:"quit_reason,omitempty"`
	DurationSeconds    int              `json:"interview_duration"`
	Improvements       []string         `json:"improvements,omitempty"`
	ConfidenceTips     []string         `json:"confidence_tips,omitempty"`
	Responses          []ResponseRecord `json:"questions_with_answers,omitempty"`
}

// IsMultiSkill reports whether the interview covered more than one skill
func (r *InterviewRecord) IsMultiSkill() bool {
	return len(r.Skills) > 1
}

// ResponseRecord is the durable form of one answered question
type ResponseRecord struct {
	QuestionNumber int        `json:"question_number"`
	QuestionText   string     `json:"question_text"`
	UserAnswer     string     `json:"user_answer"`
	AIScore        int        `json:"ai_score"`
	AIFeedback     string     `json:"ai_feedback"`
	Confidence     Confidence `json:"confidence"`
	ResponseTime   int        `json:"response_time"`
}

// SaveResult is returned after an interview record has been written
type SaveResult struct {
	InterviewID    int64 `json:"interview_id"`
	ResponsesSaved int   `json:"responses_saved"`
}

// SplitSkills parses a comma-joined skill list, dropping blanks and duplicates
func SplitSkills(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[strings.ToLower(part)] {
			continue
		}
		seen[strings.ToLower(part)] = true
		out = append(out, part)
	}
	return out
}
