package interview

import (
	"time"

	"github.com/terra-clan/interview-engine/internal/models"
)

// View is a point-in-time snapshot of a session
type View struct {
	ID              string                 `json:"id"`
	Skill           string                 `json:"skill"`
	Skills          []string               `json:"skills"`
	Difficulty      models.Difficulty      `json:"difficulty"`
	Phase           Phase                  `json:"phase"`
	Status          models.InterviewStatus `json:"status"`
	CurrentIndex    int                    `json:"current_index"`
	TotalQuestions  int                    `json:"total_questions"`
	Question        string                 `json:"question,omitempty"`
	Questions       []string               `json:"questions"`
	Answers         []string               `json:"answers"`
	ResponseTimes   []int                  `json:"response_times"`
	InputMode       InputMode              `json:"input_mode"`
	Transcript      string                 `json:"transcript"`
	Elapsed         string                 `json:"elapsed"`
	QuestionElapsed string                 `json:"question_elapsed"`
	FetchAttempts   int                    `json:"fetch_attempts,omitempty"`
	Error           string                 `json:"error,omitempty"`
	Result          *models.ScoreResult    `json:"result,omitempty"`
	QuitReason      models.QuitReason      `json:"quit_reason,omitempty"`
	InterviewID     int64                  `json:"interview_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	StartedAt       *time.Time             `json:"started_at,omitempty"`
}

// View returns a snapshot of the session
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:             s.id,
		Skill:          s.Skill(),
		Skills:         append([]string(nil), s.skills...),
		Difficulty:     s.difficulty,
		Phase:          s.phase,
		Status:         s.status,
		CurrentIndex:   s.currentIndex,
		TotalQuestions: len(s.questions),
		Questions:      append([]string{}, s.questions...),
		Answers:        append([]string{}, s.answers...),
		ResponseTimes:  append([]int{}, s.responseTimes...),
		InputMode:      s.transcript.Mode(),
		Transcript:     s.transcript.Current(),
		Elapsed:        FormatElapsed(0),
		FetchAttempts:  s.attempts,
		Error:          s.lastErr,
		Result:         s.result,
		QuitReason:     s.quitReason,
		InterviewID:    s.interviewID,
		CreatedAt:      s.createdAt,
	}

	if !s.startedAt.IsZero() {
		started := s.startedAt
		v.StartedAt = &started

		end := s.finishedAt
		if end.IsZero() {
			end = s.now()
		}
		v.Elapsed = FormatElapsed(s.elapsed())
		v.QuestionElapsed = FormatElapsed(end.Sub(s.questionStartedAt))
	}
	if s.currentIndex < len(s.questions) {
		v.Question = s.questions[s.currentIndex]
	}
	return v
}
