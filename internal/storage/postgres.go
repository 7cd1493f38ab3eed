package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/interview-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 20
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the underlying pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// SaveInterview writes the interview row and its responses in one
// transaction. Either everything is stored or nothing is.
func (r *PostgresRepository) SaveInterview(ctx context.Context, rec *models.InterviewRecord) (*models.SaveResult, error) {
	if rec == nil || rec.User.ID == "" {
		return nil, ErrMissingUser
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO leaderboard (
			user_id, user_email, user_first_name, user_last_name, user_username,
			skill, primary_skill, all_skills, difficulty, total_score, avg_score,
			questions_attempted, total_questions, is_completed, quit_reason,
			interview_duration, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		RETURNING id
	`

	var interviewID int64
	err = tx.QueryRow(ctx, query, interviewArgs(rec)...).Scan(&interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert interview: %w", err)
	}

	saved := 0
	if len(rec.Responses) > 0 {
		batch := &pgx.Batch{}
		for _, args := range responseArgs(interviewID, rec) {
			batch.Queue(`
				INSERT INTO interview_responses (
					interview_id, user_id, question_number, question_text,
					user_answer, ai_score, ai_feedback, confidence, response_time,
					improvements, confidence_tips, final_score, avg_score, skills,
					user_first_name, user_last_name, user_email, created_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
			`, args...)
		}

		results := tx.SendBatch(ctx, batch)
		for i := range rec.Responses {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return nil, fmt.Errorf("failed to insert response %d: %w", i+1, err)
			}
			saved++
		}
		if err := results.Close(); err != nil {
			return nil, fmt.Errorf("failed to insert responses: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit interview: %w", err)
	}

	return &models.SaveResult{InterviewID: interviewID, ResponsesSaved: saved}, nil
}

// RecordLogin inserts a login and fills in its ID and creation time
func (r *PostgresRepository) RecordLogin(ctx context.Context, login *models.UserLogin) error {
	query := `
		INSERT INTO user_logins (
			user_id, email_id, first_name, last_name, username,
			full_name, login_time, user_agent, ip_address, session_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		login.UserID,
		nullString(login.Email),
		nullString(login.FirstName),
		nullString(login.LastName),
		nullString(login.Username),
		nullString(login.FullName),
		login.LoginTime,
		nullString(login.UserAgent),
		login.IPAddress,
		nullString(login.SessionID),
	).Scan(&login.ID, &login.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}

	return nil
}

// LatestLogin returns the most recent login of userID at or after since,
// or nil if there is none
func (r *PostgresRepository) LatestLogin(ctx context.Context, userID string, since time.Time) (*models.UserLogin, error) {
	query := `
		SELECT id, user_id, login_time, session_id, created_at
		FROM user_logins
		WHERE user_id = $1 AND login_time >= $2
		ORDER BY login_time DESC
		LIMIT 1
	`

	var login models.UserLogin
	var sessionID sql.NullString
	var createdAt sql.NullTime

	err := r.pool.QueryRow(ctx, query, userID, since).Scan(
		&login.ID,
		&login.UserID,
		&login.LoginTime,
		&sessionID,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest login: %w", err)
	}

	login.SessionID = sessionID.String
	if createdAt.Valid {
		login.CreatedAt = createdAt.Time
	}

	return &login, nil
}

// ErrMissingUser is returned when a record has no user ID
var ErrMissingUser = errors.New("user_id is required")

func interviewArgs(rec *models.InterviewRecord) []any {
	totalQuestions := rec.TotalQuestions
	if totalQuestions <= 0 {
		totalQuestions = 10
	}

	return []any{
		rec.User.ID,
		nullString(rec.User.Email),
		nullString(rec.User.FirstName),
		nullString(rec.User.LastName),
		nullString(rec.User.Username),
		rec.Skill,
		nullString(rec.PrimarySkill),
		rec.Skills,
		strings.ToLower(rec.Difficulty),
		rec.TotalScore,
		rec.AvgScore,
		rec.QuestionsAttempted,
		totalQuestions,
		rec.IsCompleted,
		nullString(string(rec.QuitReason)),
		rec.DurationSeconds,
	}
}

// responseArgs builds one argument row per answered question. Summary
// lists are stored comma-joined on every row.
func responseArgs(interviewID int64, rec *models.InterviewRecord) [][]any {
	improvements := nullString(strings.Join(rec.Improvements, ", "))
	tips := nullString(strings.Join(rec.ConfidenceTips, ", "))

	rows := make([][]any, 0, len(rec.Responses))
	for i, resp := range rec.Responses {
		number := resp.QuestionNumber
		if number <= 0 {
			number = i + 1
		}
		confidence := resp.Confidence
		if confidence == "" {
			confidence = models.ConfidenceMedium
		}

		rows = append(rows, []any{
			interviewID,
			rec.User.ID,
			number,
			resp.QuestionText,
			resp.UserAnswer,
			resp.AIScore,
			nullString(resp.AIFeedback),
			string(confidence),
			resp.ResponseTime,
			improvements,
			tips,
			rec.TotalScore,
			rec.AvgScore,
			rec.Skill,
			nullString(rec.User.FirstName),
			nullString(rec.User.LastName),
			nullString(rec.User.Email),
		})
	}
	return rows
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
