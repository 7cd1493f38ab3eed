package storage

import (
	"context"
	"time"

	"github.com/terra-clan/interview-engine/internal/models"
)

// Repository defines the interface for interview persistence
type Repository interface {
	// Interviews
	SaveInterview(ctx context.Context, rec *models.InterviewRecord) (*models.SaveResult, error)

	// Logins
	RecordLogin(ctx context.Context, login *models.UserLogin) error
	LatestLogin(ctx context.Context, userID string, since time.Time) (*models.UserLogin, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
