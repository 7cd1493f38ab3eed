// Package reporting answers the read-only questions asked of persisted
// interviews: leaderboards, history and per-interview reports.
package reporting

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/terra-clan/interview-engine/internal/models"
)

// ErrNotFound is returned when a report or interview list is empty
var ErrNotFound = errors.New("not found")

const (
	personalStatsLimit = 50
	topScoresLimit     = 6
	globalLimit        = 100
	historyLimit       = 50

	globalCacheKey = "leaderboard:global"
)

// Cache stores serialized query results
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keyPrefix string) error
}

// Reader runs reporting queries against PostgreSQL
type Reader struct {
	db       *sql.DB
	cache    Cache
	cacheTTL time.Duration
	now      func() time.Time
}

// NewReader creates a Reader. cache may be nil.
func NewReader(db *sql.DB, cache Cache, cacheTTL time.Duration) *Reader {
	return &Reader{db: db, cache: cache, cacheTTL: cacheTTL, now: time.Now}
}

// PersonalStats returns the latest interviews of userID, newest first
func (r *Reader) PersonalStats(ctx context.Context, userID string) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT
			id, user_id, skill, difficulty,
			CAST(total_score AS INTEGER), CAST(avg_score AS DECIMAL(4,2)),
			created_at,
			COALESCE(user_email, ''), COALESCE(user_first_name, ''),
			COALESCE(user_last_name, ''), COALESCE(user_username, ''),
			COALESCE(questions_attempted, 10), COALESCE(is_completed, false),
			COALESCE(interview_duration, 0), quit_reason
		FROM leaderboard
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, personalStatsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query personal stats: %w", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		var quitReason sql.NullString
		err := rows.Scan(
			&e.ID, &e.UserID, &e.Skill, &e.Difficulty,
			&e.TotalScore, &e.AvgScore,
			&e.CreatedAt,
			&e.UserEmail, &e.FirstName, &e.LastName, &e.Username,
			&e.QuestionsAttempted, &e.IsCompleted,
			&e.InterviewDuration, &quitReason,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan personal stats: %w", err)
		}
		if quitReason.Valid {
			e.QuitReason = &quitReason.String
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// topScoresQuery picks each group's best row first, then ranks the groups
const topScoresQuery = `
	SELECT
		id, user_id, skill, difficulty, total_score, avg_score, created_at,
		user_email, user_first_name, user_last_name, user_username,
		questions_attempted, is_completed
	FROM (
		SELECT DISTINCT ON (user_id, skill, difficulty)
			id, user_id, skill, difficulty,
			CAST(total_score AS INTEGER) AS total_score,
			CAST(avg_score AS DECIMAL(4,2)) AS avg_score,
			created_at,
			COALESCE(user_email, '') AS user_email,
			COALESCE(user_first_name, '') AS user_first_name,
			COALESCE(user_last_name, '') AS user_last_name,
			COALESCE(user_username, '') AS user_username,
			COALESCE(questions_attempted, 10) AS questions_attempted,
			COALESCE(is_completed, false) AS is_completed
		FROM leaderboard
		WHERE is_completed = true
		ORDER BY user_id, skill, difficulty, avg_score DESC, created_at DESC
	) best
	ORDER BY avg_score DESC, total_score DESC, created_at ASC
	LIMIT $1
`

// TopScores returns the best completed interview per user, skill and
// difficulty, ranked by average then total score
func (r *Reader) TopScores(ctx context.Context) ([]models.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx, topScoresQuery, topScoresLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		err := rows.Scan(
			&e.ID, &e.UserID, &e.Skill, &e.Difficulty,
			&e.TotalScore, &e.AvgScore,
			&e.CreatedAt,
			&e.UserEmail, &e.FirstName, &e.LastName, &e.Username,
			&e.QuestionsAttempted, &e.IsCompleted,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan top scores: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rankTopScores(entries)
	return entries, nil
}

// rankTopScores orders entries by average then total score and numbers them
func rankTopScores(entries []models.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].AvgScore != entries[j].AvgScore {
			return entries[i].AvgScore > entries[j].AvgScore
		}
		return entries[i].TotalScore > entries[j].TotalScore
	})
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].InterviewCount = 1
	}
}

// GlobalLeaderboard ranks completed interviews with positive scores across
// all users. Results are cached when a cache is configured.
func (r *Reader) GlobalLeaderboard(ctx context.Context) ([]models.GlobalLeaderboardEntry, error) {
	if r.cache != nil {
		if data, ok, err := r.cache.Get(ctx, globalCacheKey); err != nil {
			slog.Warn("leaderboard cache read failed", "error", err)
		} else if ok {
			var entries []models.GlobalLeaderboardEntry
			if err := json.Unmarshal(data, &entries); err == nil {
				return entries, nil
			}
		}
	}

	entries, err := r.queryGlobal(ctx)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if data, err := json.Marshal(entries); err == nil {
			if err := r.cache.Set(ctx, globalCacheKey, data, r.cacheTTL); err != nil {
				slog.Warn("leaderboard cache write failed", "error", err)
			}
		}
	}

	return entries, nil
}

// InvalidateLeaderboard drops cached leaderboard results
func (r *Reader) InvalidateLeaderboard(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Invalidate(ctx, "leaderboard:")
}

func (r *Reader) queryGlobal(ctx context.Context) ([]models.GlobalLeaderboardEntry, error) {
	query := `
		SELECT
			ROW_NUMBER() OVER (
				ORDER BY CAST(avg_score AS DECIMAL(4,2)) DESC, CAST(total_score AS INTEGER) DESC, created_at ASC
			) AS global_rank,
			id, user_id,
			COALESCE(user_first_name, 'Anonymous'),
			COALESCE(user_last_name, ''),
			COALESCE(user_username, SUBSTRING(user_id, 1, 8)),
			COALESCE(user_email, ''),
			skill, difficulty,
			CAST(total_score AS INTEGER), CAST(avg_score AS DECIMAL(4,2)),
			COALESCE(questions_attempted, 10),
			COALESCE(interview_duration, 0),
			is_completed, created_at, updated_at
		FROM leaderboard
		WHERE is_completed = true
			AND CAST(total_score AS INTEGER) > 0
			AND CAST(avg_score AS DECIMAL(4,2)) > 0
		ORDER BY CAST(avg_score AS DECIMAL(4,2)) DESC, CAST(total_score AS INTEGER) DESC, created_at ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, globalLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query global leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.GlobalLeaderboardEntry{}
	for rows.Next() {
		var e models.GlobalLeaderboardEntry
		var isCompleted sql.NullBool
		var createdAt, updatedAt sql.NullTime
		err := rows.Scan(
			&e.Rank, &e.ID, &e.UserID,
			&e.FirstName, &e.LastName, &e.Username, &e.UserEmail,
			&e.Skill, &e.Difficulty,
			&e.TotalScore, &e.AvgScore,
			&e.QuestionsAttempted, &e.InterviewDuration,
			&isCompleted, &createdAt, &updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan global leaderboard: %w", err)
		}
		e.IsCompleted = isCompleted.Bool
		e.CreatedAt = createdAt.Time
		e.UpdatedAt = updatedAt.Time
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}

	stats, err := r.userStats(ctx, distinctUsers(entries))
	if err != nil {
		return nil, err
	}
	applyUserStats(entries, stats)
	return entries, nil
}

// userStats returns completed interview counts and overall averages
func (r *Reader) userStats(ctx context.Context, userIDs []string) (map[string]models.UserStats, error) {
	query := `
		SELECT user_id, COUNT(*), COALESCE(AVG(CAST(avg_score AS DECIMAL(4,2))), 0)
		FROM leaderboard
		WHERE user_id = ANY($1) AND is_completed = true
		GROUP BY user_id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query user stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]models.UserStats, len(userIDs))
	for rows.Next() {
		var userID string
		var s models.UserStats
		if err := rows.Scan(&userID, &s.InterviewCount, &s.OverallAvg); err != nil {
			return nil, fmt.Errorf("failed to scan user stats: %w", err)
		}
		stats[userID] = s
	}

	return stats, rows.Err()
}

func distinctUsers(entries []models.GlobalLeaderboardEntry) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		if !seen[e.UserID] {
			seen[e.UserID] = true
			ids = append(ids, e.UserID)
		}
	}
	return ids
}

// applyUserStats numbers entries in order and attaches per-user aggregates.
// Users without aggregates count one interview.
func applyUserStats(entries []models.GlobalLeaderboardEntry, stats map[string]models.UserStats) {
	for i := range entries {
		e := &entries[i]
		e.Rank = i + 1
		if e.FirstName == "" {
			e.FirstName = "Anonymous"
		}
		if e.Username == "" {
			e.Username = truncate(e.UserID, 8)
		}
		if s, ok := stats[e.UserID]; ok {
			e.InterviewCount = s.InterviewCount
			e.OverallAvgScore = s.OverallAvg
		} else {
			e.InterviewCount = 1
		}
	}
}

// History returns the latest interviews of userID with computed fields and
// a summary
func (r *Reader) History(ctx context.Context, userID string) (*models.UserHistory, error) {
	query := `
		SELECT
			l.id, l.user_id, l.skill, l.difficulty,
			CAST(l.total_score AS INTEGER), CAST(l.avg_score AS DECIMAL(4,2)),
			COALESCE(l.questions_attempted, 10), COALESCE(l.total_questions, 10),
			COALESCE(l.is_completed, false), l.quit_reason,
			COALESCE(l.interview_duration, 0),
			l.created_at, l.updated_at,
			COUNT(ir.id)
		FROM leaderboard l
		LEFT JOIN interview_responses ir ON l.id = ir.interview_id
		WHERE l.user_id = $1
		GROUP BY l.id
		ORDER BY l.created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		var quitReason sql.NullString
		var createdAt, updatedAt sql.NullTime
		err := rows.Scan(
			&e.ID, &e.UserID, &e.Skill, &e.Difficulty,
			&e.TotalScore, &e.AvgScore,
			&e.QuestionsAttempted, &e.TotalQuestions,
			&e.IsCompleted, &quitReason,
			&e.InterviewDuration,
			&createdAt, &updatedAt,
			&e.ResponsesSaved,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		if quitReason.Valid {
			e.QuitReason = &quitReason.String
		}
		e.CreatedAt = createdAt.Time
		e.UpdatedAt = updatedAt.Time
		decorate(&e)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.UserHistory{
		Interviews:  entries,
		Summary:     Summarize(entries),
		UserID:      userID,
		GeneratedAt: r.now().UTC(),
	}, nil
}

// EmptyHistory is returned to clients when history cannot be loaded
func (r *Reader) EmptyHistory(userID string) *models.UserHistory {
	return &models.UserHistory{
		Interviews:  []models.HistoryEntry{},
		Summary:     Summarize(nil),
		UserID:      userID,
		GeneratedAt: r.now().UTC(),
		Note:        "No interview history found or database temporarily unavailable",
	}
}

// responseRow is one interview_responses row as read by reports
type responseRow struct {
	InterviewID    int64
	QuestionNumber int
	QuestionText   string
	UserAnswer     sql.NullString
	AIScore        sql.NullInt64
	AIFeedback     sql.NullString
	Confidence     sql.NullString
	ResponseTime   sql.NullInt64
	Improvements   sql.NullString
	ConfidenceTips sql.NullString
	FinalScore     sql.NullInt64
	AvgScore       float64
	Skills         sql.NullString
	FirstName      sql.NullString
	LastName       sql.NullString
	CreatedAt      sql.NullTime
}

const responseColumns = `
	interview_id, question_number, question_text, user_answer, ai_score,
	ai_feedback, confidence, response_time, improvements, confidence_tips,
	final_score, avg_score, skills, user_first_name, user_last_name, created_at
`

func scanResponse(rows *sql.Rows) (responseRow, error) {
	var r responseRow
	err := rows.Scan(
		&r.InterviewID, &r.QuestionNumber, &r.QuestionText, &r.UserAnswer, &r.AIScore,
		&r.AIFeedback, &r.Confidence, &r.ResponseTime, &r.Improvements, &r.ConfidenceTips,
		&r.FinalScore, &r.AvgScore, &r.Skills, &r.FirstName, &r.LastName, &r.CreatedAt,
	)
	return r, err
}

// Report returns the per-question detail of one interview. The email must
// match the one stored with the responses.
func (r *Reader) Report(ctx context.Context, interviewID int64, email string) (*models.Report, error) {
	query := `SELECT ` + responseColumns + `
		FROM interview_responses
		WHERE interview_id = $1 AND user_email = $2
		ORDER BY question_number ASC
	`

	rows, err := r.db.QueryContext(ctx, query, interviewID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}
	defer rows.Close()

	var results []responseRow
	for rows.Next() {
		row, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}

	return buildReport(results), nil
}

// buildReport takes interview level fields from the first row and joins
// the per-row summary lists
func buildReport(results []responseRow) *models.Report {
	var improvements, tips []string
	for _, row := range results {
		if row.Improvements.String != "" {
			improvements = append(improvements, row.Improvements.String)
		}
		if row.ConfidenceTips.String != "" {
			tips = append(tips, row.ConfidenceTips.String)
		}
	}

	first := results[0]
	report := &models.Report{
		Meta: models.ReportMeta{
			InterviewID:    first.InterviewID,
			FirstName:      first.FirstName.String,
			LastName:       first.LastName.String,
			Skill:          first.Skills.String,
			TotalScore:     int(first.FinalScore.Int64),
			AvgScore:       first.AvgScore,
			Improvements:   strings.Join(improvements, "; "),
			ConfidenceTips: strings.Join(tips, "; "),
			CreatedAt:      first.CreatedAt.Time,
		},
		Questions: make([]models.ReportQuestion, 0, len(results)),
	}

	for _, row := range results {
		report.Questions = append(report.Questions, models.ReportQuestion{
			Number:       row.QuestionNumber,
			Question:     row.QuestionText,
			UserAnswer:   row.UserAnswer.String,
			AIScore:      int(row.AIScore.Int64),
			AIFeedback:   row.AIFeedback.String,
			Confidence:   row.Confidence.String,
			ResponseTime: int(row.ResponseTime.Int64),
		})
	}
	return report
}

// UserInterviews lists the interviews recorded for email, newest first,
// summarized from their first response row
func (r *Reader) UserInterviews(ctx context.Context, email string) ([]models.InterviewSummary, error) {
	query := `SELECT DISTINCT ON (interview_id) ` + responseColumns + `
		FROM interview_responses
		WHERE user_email = $1
		ORDER BY interview_id DESC, question_number ASC
	`

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query user interviews: %w", err)
	}
	defer rows.Close()

	var interviews []models.InterviewSummary
	for rows.Next() {
		row, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user interviews: %w", err)
		}
		interviews = append(interviews, summarizeInterview(row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(interviews) == 0 {
		return nil, ErrNotFound
	}

	return interviews, nil
}

func summarizeInterview(row responseRow) models.InterviewSummary {
	return models.InterviewSummary{
		InterviewID:    row.InterviewID,
		CreatedAt:      row.CreatedAt.Time,
		Skill:          row.Skills.String,
		FinalScore:     int(row.FinalScore.Int64),
		AvgScore:       row.AvgScore,
		Improvements:   row.Improvements.String,
		ConfidenceTips: row.ConfidenceTips.String,
		FirstName:      row.FirstName.String,
		LastName:       row.LastName.String,
	}
}

// Ping checks the reporting database
func (r *Reader) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
