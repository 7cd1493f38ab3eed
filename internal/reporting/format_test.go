package reporting

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/terra-clan/interview-engine/internal/models"
)

func TestPerformanceRating(t *testing.T) {
	tests := []struct {
		avg  float64
		want string
	}{
		{10, "Excellent"},
		{9, "Excellent"},
		{8.99, "Very Good"},
		{8, "Very Good"},
		{7.5, "Good"},
		{6, "Fair"},
		{5, "Needs Improvement"},
		{4.99, "Poor"},
		{0, "Poor"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PerformanceRating(tt.avg), "avg %v", tt.avg)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0s"},
		{59, "59s"},
		{60, "1m 0s"},
		{725, "12m 5s"},
		{3599, "59m 59s"},
		{3600, "1h 0m"},
		{3780, "1h 3m"},
		{-5, "0s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.seconds), "seconds %d", tt.seconds)
	}
}

func TestCompletionPercentage(t *testing.T) {
	assert.Equal(t, 100, CompletionPercentage(10, 10))
	assert.Equal(t, 30, CompletionPercentage(3, 10))
	assert.Equal(t, 40, CompletionPercentage(2, 5))
	assert.Equal(t, 0, CompletionPercentage(0, 10))
	assert.Equal(t, 50, CompletionPercentage(5, 0), "legacy rows assume ten questions")
	assert.Equal(t, 100, CompletionPercentage(12, 10))
	assert.Equal(t, 67, CompletionPercentage(2, 3))
}

func TestSummarize(t *testing.T) {
	entries := []models.HistoryEntry{
		{Skill: "Go", AvgScore: 7.25, IsCompleted: true, QuestionsAttempted: 10},
		{Skill: "SQL", AvgScore: 0, IsCompleted: false, QuestionsAttempted: 3},
		{Skill: "Go", AvgScore: 8.5, IsCompleted: true, QuestionsAttempted: 10},
	}

	s := Summarize(entries)
	assert.Equal(t, 3, s.TotalInterviews)
	assert.Equal(t, 2, s.CompletedInterviews)
	assert.Equal(t, 5.3, s.AverageScore)
	assert.Equal(t, 8.5, s.BestScore)
	assert.Equal(t, []string{"Go", "SQL"}, s.SkillsPracticed)
	assert.Equal(t, 23, s.TotalQuestionsAttempted)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.TotalInterviews)
	assert.Zero(t, s.AverageScore)
	assert.Zero(t, s.BestScore)
	assert.NotNil(t, s.SkillsPracticed)
}

func TestDecorate(t *testing.T) {
	e := models.HistoryEntry{AvgScore: 8.2, QuestionsAttempted: 4, InterviewDuration: 125}
	decorate(&e)

	assert.Equal(t, 10, e.TotalQuestions)
	assert.Equal(t, 40, e.CompletionPercentage)
	assert.Equal(t, "Very Good", e.PerformanceRating)
	assert.Equal(t, "2m 5s", e.DurationFormatted)
}
