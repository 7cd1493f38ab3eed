package interview

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/terra-clan/interview-engine/internal/models"
)

// Phase is a step of the session state machine
type Phase string

const (
	PhaseLoading       Phase = "loading"
	PhaseActive        Phase = "active"
	PhaseScoring       Phase = "scoring"
	PhaseScoringFailed Phase = "scoring_failed"
	PhaseCompleted     Phase = "completed"
	PhaseQuitting      Phase = "quitting"
	PhaseQuit          Phase = "quit"
	PhaseError         Phase = "error"
)

// Terminal returns true if no further transition is possible
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseQuit || p == PhaseError
}

// Session is one user's attempt at an interview, from question loading to
// completion or quit. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id         string
	user       models.User
	skills     []string
	difficulty models.Difficulty

	// questions, answers and responseTimes always have equal length
	questions     []string
	answers       []string
	responseTimes []int
	currentIndex  int

	phase       Phase
	status      models.InterviewStatus
	lastErr     string
	attempts    int
	submitting  bool
	result      *models.ScoreResult
	quitReason  models.QuitReason
	interviewID int64

	transcript *Transcript
	stopHooks  map[int]func()
	nextHook   int

	createdAt         time.Time
	startedAt         time.Time
	questionStartedAt time.Time
	finishedAt        time.Time
	lastActivity      time.Time

	closed bool
	cancel context.CancelFunc
	now    func() time.Time
}

func newSession(id string, user models.User, skills []string, difficulty models.Difficulty, mode InputMode, now func() time.Time) *Session {
	t := now()
	return &Session{
		id:           id,
		user:         user,
		skills:       skills,
		difficulty:   difficulty,
		phase:        PhaseLoading,
		status:       models.StatusInProgress,
		transcript:   NewTranscript(mode),
		stopHooks:    make(map[int]func()),
		createdAt:    t,
		lastActivity: t,
		now:          now,
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// UserID returns the owner of the session
func (s *Session) UserID() string {
	return s.user.ID
}

// Skill returns the comma-joined skill list
func (s *Session) Skill() string {
	return strings.Join(s.skills, ",")
}

// Phase returns the current phase
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// begin moves a loading session to active with the fetched questions.
// Returns false when the session was closed or already left loading.
func (s *Session) begin(questions []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhaseLoading || len(questions) == 0 {
		return false
	}

	now := s.now()
	s.questions = questions
	s.answers = make([]string, len(questions))
	s.responseTimes = make([]int, len(questions))
	s.currentIndex = 0
	s.phase = PhaseActive
	s.lastErr = ""
	s.startedAt = now
	s.questionStartedAt = now
	s.lastActivity = now
	return true
}

// recordAttempt notes a failed question fetch while still loading
func (s *Session) recordAttempt(attempt int, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhaseLoading {
		return false
	}
	s.attempts = attempt
	s.lastErr = errorMessage(err)
	return true
}

// fail moves a loading session to the terminal error phase
func (s *Session) fail(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhaseLoading {
		return false
	}
	s.phase = PhaseError
	s.lastErr = errorMessage(err)
	return true
}

// Advance records answer for the current question and moves on. On the last
// question the session enters scoring and never returns to active.
func (s *Session) Advance(answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return fmt.Errorf("advance in %s: %w", s.phase, ErrInvalidTransition)
	}
	if strings.TrimSpace(answer) == "" {
		return ErrEmptyAnswer
	}

	now := s.now()
	i := s.currentIndex
	s.answers[i] = answer
	s.responseTimes[i] = wholeSeconds(now.Sub(s.questionStartedAt))
	s.lastActivity = now

	if i == len(s.questions)-1 {
		s.phase = PhaseScoring
		return nil
	}

	s.currentIndex++
	s.questionStartedAt = now
	s.transcript.Reset()
	return nil
}

// Retreat goes back one question and restores its answer for editing.
// It is a no-op on the first question.
func (s *Session) Retreat() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return fmt.Errorf("retreat in %s: %w", s.phase, ErrInvalidTransition)
	}
	if s.currentIndex == 0 {
		return nil
	}

	now := s.now()
	s.currentIndex--
	s.transcript.Restore(s.answers[s.currentIndex])
	s.questionStartedAt = now
	s.lastActivity = now
	return nil
}

// Draft returns the transcript of the current question
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Current()
}

// beginSubmit claims the session for scoring and returns the scorer input
func (s *Session) beginSubmit() (ScoreRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return ScoreRequest{}, ErrSubmitInProgress
	}
	if s.phase != PhaseScoring && s.phase != PhaseScoringFailed {
		return ScoreRequest{}, fmt.Errorf("submit in %s: %w", s.phase, ErrInvalidTransition)
	}

	s.submitting = true
	s.phase = PhaseScoring
	s.lastErr = ""
	s.lastActivity = s.now()

	return ScoreRequest{
		Skill:              s.Skill(),
		Difficulty:         string(s.difficulty),
		Questions:          append([]string(nil), s.questions...),
		Answers:            append([]string(nil), s.answers...),
		QuestionsAttempted: len(s.questions),
		TotalQuestions:     len(s.questions),
	}, nil
}

// finishSubmit applies the scorer outcome. On success it completes the
// session and returns the record to persist.
func (s *Session) finishSubmit(result *models.ScoreResult, err error) (*models.InterviewRecord, []func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submitting = false
	s.lastActivity = s.now()

	if s.closed {
		return nil, nil
	}
	if err != nil {
		s.phase = PhaseScoringFailed
		s.lastErr = errorMessage(err)
		return nil, nil
	}

	s.result = result
	s.finishedAt = s.lastActivity
	s.phase = PhaseCompleted
	s.status = models.StatusCompleted
	return s.completedRecord(), s.takeStopHooks()
}

// quit ends an active session early and returns the record to persist
func (s *Session) quit(reason models.QuitReason) (*models.InterviewRecord, []func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !reason.Valid() {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidQuitReason, reason)
	}
	if s.phase != PhaseActive {
		return nil, nil, fmt.Errorf("quit in %s: %w", s.phase, ErrInvalidTransition)
	}

	s.phase = PhaseQuitting
	s.quitReason = reason
	s.lastActivity = s.now()
	s.finishedAt = s.lastActivity
	record := s.quitRecord()

	s.status = models.StatusQuit
	s.phase = PhaseQuit
	return record, s.takeStopHooks(), nil
}

// close marks the session abandoned; late async results are discarded
func (s *Session) close() []func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	return s.takeStopHooks()
}

// OnStop registers fn to run when the session stops accepting input, e.g.
// to end a live transcription stream. The returned func unregisters it.
func (s *Session) OnStop(fn func()) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase.Terminal() {
		go fn()
		return func() {}
	}

	key := s.nextHook
	s.nextHook++
	s.stopHooks[key] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.stopHooks, key)
	}
}

func (s *Session) takeStopHooks() []func() {
	hooks := make([]func(), 0, len(s.stopHooks))
	for key, fn := range s.stopHooks {
		hooks = append(hooks, fn)
		delete(s.stopHooks, key)
	}
	return hooks
}

func (s *Session) setInterviewID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interviewID = id
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity.Before(cutoff)
}

// Transcript operations. They only apply while the session is active.

// SetInputMode switches between voice and text input
func (s *Session) SetInputMode(mode InputMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown input mode %q", ErrInvalidRequest, mode)
	}
	return s.withTranscript(func(t *Transcript) bool {
		t.SetMode(mode)
		return true
	})
}

// VoiceInterim replaces the interim recognition segment
func (s *Session) VoiceInterim(text string) error {
	return s.withTranscript(func(t *Transcript) bool { return t.SetInterim(text) })
}

// VoiceFinal commits a recognized segment
func (s *Session) VoiceFinal(text string) error {
	return s.withTranscript(func(t *Transcript) bool { return t.AppendFinal(text) })
}

// VoiceRestart handles a recognizer restart
func (s *Session) VoiceRestart() error {
	return s.withTranscript(func(t *Transcript) bool { return t.Restart() })
}

// EditText replaces the typed answer
func (s *Session) EditText(text string) error {
	return s.withTranscript(func(t *Transcript) bool { return t.Replace(text) })
}

func (s *Session) withTranscript(fn func(t *Transcript) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return fmt.Errorf("transcript update in %s: %w", s.phase, ErrInvalidTransition)
	}
	if !fn(s.transcript) {
		return fmt.Errorf("%w: input not accepted in %s mode", ErrInvalidRequest, s.transcript.Mode())
	}
	s.lastActivity = s.now()
	return nil
}

func (s *Session) completedRecord() *models.InterviewRecord {
	rec := s.baseRecord()
	rec.TotalScore = s.result.Summary.Total
	rec.AvgScore = s.result.Summary.Avg
	rec.QuestionsAttempted = len(s.questions)
	rec.IsCompleted = true
	rec.Improvements = s.result.Summary.Improvements
	rec.ConfidenceTips = s.result.Summary.ConfidenceTips

	rec.Responses = make([]models.ResponseRecord, len(s.questions))
	for i, q := range s.questions {
		resp := models.ResponseRecord{
			QuestionNumber: i + 1,
			QuestionText:   q,
			UserAnswer:     s.answers[i],
			Confidence:     models.ConfidenceMedium,
			ResponseTime:   s.responseTimes[i],
		}
		if i < len(s.result.PerQuestion) {
			pq := s.result.PerQuestion[i]
			resp.AIScore = pq.Score
			resp.AIFeedback = pq.Feedback
			resp.Confidence = pq.Confidence
		}
		rec.Responses[i] = resp
	}
	return rec
}

func (s *Session) quitRecord() *models.InterviewRecord {
	rec := s.baseRecord()
	rec.QuestionsAttempted = s.currentIndex
	rec.QuitReason = s.quitReason
	return rec
}

func (s *Session) baseRecord() *models.InterviewRecord {
	var primary string
	if len(s.skills) > 0 {
		primary = s.skills[0]
	}
	return &models.InterviewRecord{
		User:            s.user,
		Skill:           s.Skill(),
		PrimarySkill:    primary,
		Skills:          append([]string(nil), s.skills...),
		Difficulty:      string(s.difficulty),
		TotalQuestions:  len(s.questions),
		DurationSeconds: wholeSeconds(s.elapsed()),
	}
}

// elapsed runs from the first question until the session finished, or
// until now while it is still going
func (s *Session) elapsed() time.Duration {
	end := s.finishedAt
	if end.IsZero() {
		end = s.now()
	}
	return end.Sub(s.startedAt)
}

func errorMessage(err error) string {
	if err == nil {
		return "no questions generated"
	}
	return err.Error()
}

// wholeSeconds truncates d to whole seconds, never negative
func wholeSeconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// FormatElapsed renders d as MM:SS, truncated to whole seconds
func FormatElapsed(d time.Duration) string {
	secs := wholeSeconds(d)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
