package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/interview-engine/internal/models"
)

// MaxSkills is the largest number of skills one interview may cover
const MaxSkills = 3

// Persister durably records finished interviews
type Persister interface {
	SaveInterview(ctx context.Context, rec *models.InterviewRecord) (*models.SaveResult, error)
}

// Options configures a Manager
type Options struct {
	QuestionCount  int
	FetchAttempts  int
	FetchBackoff   time.Duration
	PersistTimeout time.Duration
}

// DefaultOptions returns ten questions, three fetch attempts and one second
// of linear backoff
func DefaultOptions() Options {
	return Options{
		QuestionCount:  DefaultQuestionCount,
		FetchAttempts:  3,
		FetchBackoff:   time.Second,
		PersistTimeout: 10 * time.Second,
	}
}

// CreateOptions holds the parameters of a new session
type CreateOptions struct {
	Skills     []string
	Difficulty string
	InputMode  InputMode
}

// Manager owns the live sessions and drives their async work: question
// loading, scoring and persistence
type Manager struct {
	questions QuestionProvider
	scorer    Scorer
	persister Persister
	opts      Options

	mu       sync.RWMutex
	sessions map[string]*Session

	// tracks in-flight loads and writes so shutdown can drain them
	pending sync.WaitGroup

	baseCtx context.Context
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewManager creates a Manager. baseCtx bounds background question loads.
func NewManager(baseCtx context.Context, questions QuestionProvider, scorer Scorer, persister Persister, opts Options) *Manager {
	defaults := DefaultOptions()
	if opts.QuestionCount <= 0 {
		opts.QuestionCount = defaults.QuestionCount
	}
	if opts.FetchAttempts <= 0 {
		opts.FetchAttempts = defaults.FetchAttempts
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaults.PersistTimeout
	}

	return &Manager{
		questions: questions,
		scorer:    scorer,
		persister: persister,
		opts:      opts,
		sessions:  make(map[string]*Session),
		baseCtx:   baseCtx,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Create validates the request, registers a loading session and starts
// fetching its questions in the background
func (m *Manager) Create(ctx context.Context, user models.User, opts CreateOptions) (*Session, error) {
	skills := normalizeSkills(opts.Skills)
	if len(skills) == 0 {
		return nil, fmt.Errorf("%w: skill and difficulty are required", ErrInvalidRequest)
	}
	if len(skills) > MaxSkills {
		return nil, fmt.Errorf("%w: at most %d skills per interview", ErrInvalidRequest, MaxSkills)
	}

	difficulty, ok := models.ParseDifficulty(opts.Difficulty)
	if !ok {
		return nil, fmt.Errorf("%w: difficulty must be easy, medium or hard", ErrInvalidRequest)
	}

	mode := opts.InputMode
	if mode == "" {
		mode = ModeVoice
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown input mode %q", ErrInvalidRequest, mode)
	}

	s := newSession(uuid.New().String(), user, skills, difficulty, mode, m.now)
	loadCtx, cancel := context.WithCancel(m.baseCtx)
	s.cancel = cancel

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		defer cancel()
		m.load(loadCtx, s)
	}()

	slog.Info("interview session created",
		"id", s.id,
		"user", user.ID,
		"skill", s.Skill(),
		"difficulty", difficulty,
	)

	return s, nil
}

// load fetches questions with linear backoff. Results for a session that
// was closed in the meantime are dropped.
func (m *Manager) load(ctx context.Context, s *Session) {
	req := QuestionRequest{
		Skill:      s.Skill(),
		Difficulty: string(s.difficulty),
		Count:      m.opts.QuestionCount,
	}

	var lastErr error
	for attempt := 1; attempt <= m.opts.FetchAttempts; attempt++ {
		questions, err := m.questions.Questions(ctx, req)
		if err == nil && len(questions) == 0 {
			err = &QuestionError{Reason: ReasonEmpty, Message: "No questions generated"}
		}
		if err == nil {
			if len(questions) > req.Count {
				questions = questions[:req.Count]
			}
			if s.begin(questions) {
				slog.Info("interview questions loaded", "id", s.id, "count", len(questions), "attempt", attempt)
			}
			return
		}

		lastErr = err
		if !s.recordAttempt(attempt, err) {
			return
		}
		slog.Warn("question fetch failed", "id", s.id, "attempt", attempt, "error", err)

		if attempt == m.opts.FetchAttempts {
			break
		}
		if err := m.sleep(ctx, m.opts.FetchBackoff*time.Duration(attempt)); err != nil {
			return
		}
	}

	if s.fail(lastErr) {
		slog.Error("interview setup failed", "id", s.id, "attempts", m.opts.FetchAttempts, "error", lastErr)
	}
}

// Get returns the session with id if it belongs to userID
func (m *Manager) Get(_ context.Context, id, userID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || s.UserID() != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Advance records the answer for the current question. A nil answer falls
// back to the session transcript.
func (m *Manager) Advance(ctx context.Context, id, userID string, answer *string) (*Session, error) {
	s, err := m.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	text := s.Draft()
	if answer != nil {
		text = *answer
	}
	if err := s.Advance(text); err != nil {
		return s, err
	}
	return s, nil
}

// Retreat moves back one question
func (m *Manager) Retreat(ctx context.Context, id, userID string) (*Session, error) {
	s, err := m.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s, s.Retreat()
}

// Submit scores the answers of a session waiting in scoring. On success the
// session completes and its record is persisted in the background; on
// failure the session stays resubmittable.
func (m *Manager) Submit(ctx context.Context, id, userID string) (*Session, error) {
	s, err := m.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	req, err := s.beginSubmit()
	if err != nil {
		return s, err
	}

	result, scoreErr := m.scorer.Score(ctx, req)
	record, hooks := s.finishSubmit(result, scoreErr)
	runHooks(hooks)

	if scoreErr != nil {
		slog.Warn("interview scoring failed", "id", id, "error", scoreErr)
		return s, scoreErr
	}

	if record != nil {
		slog.Info("interview completed", "id", id, "user", userID, "total", record.TotalScore, "avg", record.AvgScore)
		m.persist(s, record)
	}
	return s, nil
}

// Quit ends an active session early and persists the quit in the background
func (m *Manager) Quit(ctx context.Context, id, userID string, reason models.QuitReason) (*Session, error) {
	s, err := m.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	record, hooks, err := s.quit(reason)
	if err != nil {
		return s, err
	}
	runHooks(hooks)

	slog.Info("interview quit", "id", id, "user", userID, "reason", reason, "attempted", record.QuestionsAttempted)
	m.persist(s, record)
	return s, nil
}

// Delete abandons a session: pending loads are cancelled, live streams are
// stopped and the session is forgotten
func (m *Manager) Delete(ctx context.Context, id, userID string) error {
	s, err := m.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	m.remove(s)
	return nil
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()

	runHooks(s.close())
}

// ReapIdle removes sessions with no activity since now minus ttl and
// returns how many were removed
func (m *Manager) ReapIdle(_ context.Context, ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	m.mu.RLock()
	var idle []*Session
	for _, s := range m.sessions {
		if s.idleSince(cutoff) {
			idle = append(idle, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range idle {
		slog.Info("removing idle interview session", "id", s.id, "user", s.UserID(), "phase", s.Phase())
		m.remove(s)
	}
	return len(idle)
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Wait blocks until background loads and writes finish or ctx is done
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// persist writes rec without blocking the caller. Failures are logged and
// never retried; the visible transition stands either way.
func (m *Manager) persist(s *Session, rec *models.InterviewRecord) {
	if m.persister == nil {
		return
	}

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.opts.PersistTimeout)
		defer cancel()

		res, err := m.persister.SaveInterview(ctx, rec)
		if err != nil {
			slog.Error("failed to persist interview",
				"error", err,
				"session", s.id,
				"user", rec.User.ID,
				"completed", rec.IsCompleted,
			)
			return
		}

		s.setInterviewID(res.InterviewID)
		slog.Info("interview persisted",
			"session", s.id,
			"interview_id", res.InterviewID,
			"responses_saved", res.ResponsesSaved,
		)
	}()
}

func runHooks(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}

func normalizeSkills(skills []string) []string {
	var joined []string
	for _, s := range skills {
		joined = append(joined, models.SplitSkills(s)...)
	}
	return models.SplitSkills(strings.Join(joined, ","))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsClientError reports whether err was caused by the caller rather than
// by the server or a collaborator
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyAnswer) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidQuitReason)
}
