package models

import "time"

// LeaderboardEntry is one persisted interview as shown on leaderboards
// and personal stats
type LeaderboardEntry struct {
	ID                 int64     `json:"id"`
	UserID             string    `json:"user_id"`
	UserEmail          string    `json:"user_email"`
	FirstName          string    `json:"user_first_name"`
	LastName           string    `json:"user_last_name"`
	Username           string    `json:"user_username"`
	Skill              string    `json:"skill"`
	Difficulty         string    `json:"difficulty"`
	TotalScore         int       `json:"total_score"`
	AvgScore           float64   `json:"avg_score"`
	QuestionsAttempted int       `json:"questions_attempted"`
	IsCompleted        bool      `json:"is_completed"`
	QuitReason         *string   `json:"quit_reason"`
	InterviewDuration  int       `json:"interview_duration"`
	CreatedAt          time.Time `json:"created_at"`
	Rank               int       `json:"global_rank,omitempty"`
	InterviewCount     int       `json:"interview_count,omitempty"`
}

// GlobalLeaderboardEntry is a ranked interview with per-user aggregates
type GlobalLeaderboardEntry struct {
	LeaderboardEntry
	UpdatedAt       time.Time `json:"updated_at"`
	OverallAvgScore float64   `json:"overall_avg_score"`
}

// UserStats is the per-user aggregate over completed interviews
type UserStats struct {
	InterviewCount int
	OverallAvg     float64
}

// HistoryEntry is one interview in a user's history
type HistoryEntry struct {
	ID                   int64     `json:"id"`
	UserID               string    `json:"user_id"`
	Skill                string    `json:"skill"`
	Difficulty           string    `json:"difficulty"`
	TotalScore           int       `json:"total_score"`
	AvgScore             float64   `json:"avg_score"`
	QuestionsAttempted   int       `json:"questions_attempted"`
	TotalQuestions       int       `json:"total_questions"`
	IsCompleted          bool      `json:"is_completed"`
	QuitReason           *string   `json:"quit_reason"`
	InterviewDuration    int       `json:"interview_duration"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	ResponsesSaved       int       `json:"responses_saved"`
	CompletionPercentage int       `json:"completion_percentage"`
	PerformanceRating    string    `json:"performance_rating"`
	DurationFormatted    string    `json:"duration_formatted"`
}

// HistorySummary aggregates a user's history
type HistorySummary struct {
	TotalInterviews         int      `json:"total_interviews"`
	CompletedInterviews     int      `json:"completed_interviews"`
	AverageScore            float64  `json:"average_score"`
	BestScore               float64  `json:"best_score"`
	SkillsPracticed         []string `json:"skills_practiced"`
	TotalQuestionsAttempted int      `json:"total_questions_attempted"`
}

// UserHistory is the full history view for one user
type UserHistory struct {
	Interviews  []HistoryEntry `json:"interviews"`
	Summary     HistorySummary `json:"summary"`
	UserID      string         `json:"user_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Note        string         `json:"note,omitempty"`
}

// ReportMeta is the interview-level header of a report
type ReportMeta struct {
	InterviewID    int64     `json:"interview_id"`
	FirstName      string    `json:"user_first_name"`
	LastName       string    `json:"user_last_name"`
	Skill          string    `json:"skill"`
	TotalScore     int       `json:"total_score"`
	AvgScore       float64   `json:"avg_score"`
	Improvements   string    `json:"improvements"`
	ConfidenceTips string    `json:"confidence_tips"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReportQuestion is one question row of a report
type ReportQuestion struct {
	Number       int    `json:"q_no"`
	Question     string `json:"question"`
	UserAnswer   string `json:"user_answer"`
	AIScore      int    `json:"ai_score"`
	AIFeedback   string `json:"ai_feedback"`
	Confidence   string `json:"confidence"`
	ResponseTime int    `json:"response_time"`
}

// Report is the per-question detail of one interview
type Report struct {
	Meta      ReportMeta       `json:"meta"`
	Questions []ReportQuestion `json:"questions"`
}

// InterviewSummary is one interview in a user's report list
type InterviewSummary struct {
	InterviewID    int64     `json:"interview_id"`
	CreatedAt      time.Time `json:"created_at"`
	Skill          string    `json:"skill"`
	FinalScore     int       `json:"final_score"`
	AvgScore       float64   `json:"avg_score"`
	Improvements   string    `json:"improvements"`
	ConfidenceTips string    `json:"confidence_tips"`
	FirstName      string    `json:"user_first_name"`
	LastName       string    `json:"user_last_name"`
}
