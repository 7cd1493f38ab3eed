package reporting

import (
	"context"
	"log/slog"

	"github.com/terra-clan/interview-engine/internal/models"
)

// InterviewSaver persists finished interviews
type InterviewSaver interface {
	SaveInterview(ctx context.Context, rec *models.InterviewRecord) (*models.SaveResult, error)
}

// InvalidatingSaver drops cached leaderboards after every successful save
type InvalidatingSaver struct {
	saver  InterviewSaver
	reader *Reader
}

// InvalidateOnSave wraps saver so new interviews show up on the
// leaderboards before the cache TTL runs out
func InvalidateOnSave(saver InterviewSaver, reader *Reader) *InvalidatingSaver {
	return &InvalidatingSaver{saver: saver, reader: reader}
}

// SaveInterview implements InterviewSaver
func (s *InvalidatingSaver) SaveInterview(ctx context.Context, rec *models.InterviewRecord) (*models.SaveResult, error) {
	res, err := s.saver.SaveInterview(ctx, rec)
	if err != nil {
		return nil, err
	}

	if err := s.reader.InvalidateLeaderboard(ctx); err != nil {
		slog.Warn("failed to invalidate leaderboard cache", "error", err)
	}
	return res, nil
}
