package reporting

import (
	"fmt"
	"math"

	"github.com/terra-clan/interview-engine/internal/models"
)

// defaultTotalQuestions is assumed for rows written before the question
// count was stored
const defaultTotalQuestions = 10

// PerformanceRating labels an average score
func PerformanceRating(avg float64) string {
	switch {
	case avg >= 9:
		return "Excellent"
	case avg >= 8:
		return "Very Good"
	case avg >= 7:
		return "Good"
	case avg >= 6:
		return "Fair"
	case avg >= 5:
		return "Needs Improvement"
	default:
		return "Poor"
	}
}

// FormatDuration renders seconds as "45s", "12m 5s" or "1h 3m"
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// CompletionPercentage is attempted over total, rounded, capped at 100
func CompletionPercentage(attempted, total int) int {
	if total <= 0 {
		total = defaultTotalQuestions
	}
	if attempted <= 0 {
		return 0
	}
	pct := int(math.Round(float64(attempted) / float64(total) * 100))
	return min(pct, 100)
}

// Summarize aggregates a user's history
func Summarize(entries []models.HistoryEntry) models.HistorySummary {
	summary := models.HistorySummary{
		TotalInterviews: len(entries),
		SkillsPracticed: []string{},
	}

	seen := make(map[string]bool)
	var sum float64
	for _, e := range entries {
		if e.IsCompleted {
			summary.CompletedInterviews++
		}
		sum += e.AvgScore
		summary.BestScore = math.Max(summary.BestScore, e.AvgScore)
		summary.TotalQuestionsAttempted += e.QuestionsAttempted
		if !seen[e.Skill] {
			seen[e.Skill] = true
			summary.SkillsPracticed = append(summary.SkillsPracticed, e.Skill)
		}
	}

	if len(entries) > 0 {
		summary.AverageScore = math.Round(sum/float64(len(entries))*10) / 10
	}
	return summary
}

// decorate fills the computed fields of a history entry
func decorate(e *models.HistoryEntry) {
	if e.TotalQuestions <= 0 {
		e.TotalQuestions = defaultTotalQuestions
	}
	e.CompletionPercentage = CompletionPercentage(e.QuestionsAttempted, e.TotalQuestions)
	e.PerformanceRating = PerformanceRating(e.AvgScore)
	e.DurationFormatted = FormatDuration(e.InterviewDuration)
}
