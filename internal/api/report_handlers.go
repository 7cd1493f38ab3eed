package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/interview-engine/internal/logins"
	"github.com/terra-clan/interview-engine/internal/models"
	"github.com/terra-clan/interview-engine/internal/reporting"
)

// These endpoints keep the response shapes existing clients depend on
// instead of the {success, data, error} envelope.

type saveInterviewRequest struct {
	models.User
	Skill                string                  `json:"skill"`
	Difficulty           string                  `json:"difficulty"`
	TotalScore           float64                 `json:"total_score"`
	AvgScore             float64                 `json:"avg_score"`
	QuestionsAttempted   int                     `json:"questions_attempted"`
	TotalQuestions       int                     `json:"total_questions"`
	IsCompleted          bool                    `json:"is_completed"`
	InterviewDuration    int                     `json:"interview_duration"`
	QuitReason           models.QuitReason       `json:"quit_reason"`
	QuestionsWithAnswers []models.ResponseRecord `json:"questions_with_answers"`
	PrimarySkill         string                  `json:"primary_skill"`
	AllSkills            []string                `json:"all_skills"`
	Improvements         []string                `json:"improvements"`
	ConfidenceTips       []string                `json:"confidence_tips"`
}

func (req *saveInterviewRequest) record() *models.InterviewRecord {
	skills := req.AllSkills
	if len(skills) == 0 {
		skills = models.SplitSkills(req.Skill)
	}
	primary := req.PrimarySkill
	if primary == "" && len(skills) > 0 {
		primary = skills[0]
	}

	return &models.InterviewRecord{
		User:               req.User,
		Skill:              req.Skill,
		PrimarySkill:       primary,
		Skills:             skills,
		Difficulty:         req.Difficulty,
		TotalScore:         int(math.Round(req.TotalScore)),
		AvgScore:           req.AvgScore,
		QuestionsAttempted: req.QuestionsAttempted,
		TotalQuestions:     req.TotalQuestions,
		IsCompleted:        req.IsCompleted,
		QuitReason:         req.QuitReason,
		DurationSeconds:    req.InterviewDuration,
		Improvements:       req.Improvements,
		ConfidenceTips:     req.ConfidenceTips,
		Responses:          req.QuestionsWithAnswers,
	}
}

// fillProfile copies profile fields the body left out from the token
func fillProfile(dst *models.User, from *models.User) {
	if dst.Email == "" {
		dst.Email = from.Email
	}
	if dst.FirstName == "" {
		dst.FirstName = from.FirstName
	}
	if dst.LastName == "" {
		dst.LastName = from.LastName
	}
	if dst.Username == "" {
		dst.Username = from.Username
	}
}

// nullable renders "" as JSON null
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (s *Server) handleSaveInterview(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req saveInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, legacyError{Error: "invalid JSON body"})
		return
	}

	if req.ID == "" {
		writeJSON(w, http.StatusBadRequest, legacyError{Error: "user_id is required"})
		return
	}
	if req.ID != user.ID {
		writeJSON(w, http.StatusForbidden, legacyError{Error: "user_id does not match the authenticated user"})
		return
	}
	fillProfile(&req.User, user)
	if user.Email != "" {
		req.User.Email = user.Email
	}

	rec := req.record()
	saved, err := s.deps.Store.SaveInterview(r.Context(), rec)
	if err != nil {
		slog.Error("failed to save interview", "error", err, "user", user.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Failed to save interview data to database",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Interview data saved successfully with user details",
		"data": map[string]interface{}{
			"interview_id":        saved.InterviewID,
			"user_id":             rec.User.ID,
			"user_email":          nullable(rec.User.Email),
			"user_first_name":     nullable(rec.User.FirstName),
			"user_last_name":      nullable(rec.User.LastName),
			"quit_reason":         nullable(string(rec.QuitReason)),
			"questions_attempted": rec.QuestionsAttempted,
			"is_completed":        rec.IsCompleted,
			"responses_saved":     saved.ResponsesSaved,
			"skills_saved":        nullable(rec.Skill),
		},
	})
}

func (s *Server) handleRecordLogin(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var login models.UserLogin
	if err := json.NewDecoder(r.Body).Decode(&login); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid JSON body"})
		return
	}

	if login.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "user_id is required"})
		return
	}
	if login.UserID != user.ID {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"success": false, "error": "user_id does not match the authenticated user"})
		return
	}
	login.IPAddress = logins.ClientIP(r)
	if login.UserAgent == "" {
		login.UserAgent = r.UserAgent()
	}

	outcome, err := s.deps.Logins.Record(r.Context(), &login)
	if err != nil {
		slog.Error("failed to record login", "error", err, "user", login.UserID)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Failed to save user login data",
		})
		return
	}

	switch {
	case outcome.Duplicate && outcome.Source == logins.SourceCache:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"message":       "Login already recorded recently (memory cache)",
			"duplicate":     true,
			"cache_blocked": true,
			"data": map[string]interface{}{
				"user_id":      login.UserID,
				"last_attempt": outcome.LastAttempt.UTC().Format(time.RFC3339Nano),
			},
		})
	case outcome.Duplicate:
		existing := outcome.Login
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":          true,
			"message":          "Login already recorded recently (database)",
			"duplicate":        true,
			"database_blocked": true,
			"data": map[string]interface{}{
				"existing_login_id": existing.ID,
				"user_id":           login.UserID,
				"last_login_time":   existing.LoginTime,
				"existing_session":  nullable(existing.SessionID),
			},
		})
	default:
		stored := outcome.Login
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"message":   "User login data saved successfully",
			"duplicate": false,
			"new_entry": true,
			"data": map[string]interface{}{
				"login_id":   stored.ID,
				"user_id":    stored.UserID,
				"email_id":   nullable(stored.Email),
				"first_name": nullable(stored.FirstName),
				"last_name":  nullable(stored.LastName),
				"login_time": stored.LoginTime,
				"session_id": nullable(stored.SessionID),
				"ip_address": stored.IPAddress,
				"created_at": stored.CreatedAt,
			},
		})
	}
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	if userID := r.URL.Query().Get("user_id"); userID != "" {
		if userID != user.ID {
			writeJSON(w, http.StatusForbidden, legacyError{Error: "user_id does not match the authenticated user"})
			return
		}

		stats, err := s.deps.Reports.PersonalStats(r.Context(), userID)
		if err != nil {
			slog.Error("failed to fetch personal stats", "error", err, "user", userID)
			writeJSON(w, http.StatusInternalServerError, legacyError{Error: "Failed to fetch leaderboard data"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":           true,
			"personalStats":     nonNil(stats),
			"globalLeaderboard": []models.LeaderboardEntry{},
			"message":           "Personal stats for user " + userID,
		})
		return
	}

	top, err := s.deps.Reports.TopScores(r.Context())
	if err != nil {
		slog.Error("failed to fetch top scores", "error", err)
		writeJSON(w, http.StatusInternalServerError, legacyError{Error: "Failed to fetch leaderboard data"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"globalLeaderboard": nonNil(top),
		"personalStats":     []models.LeaderboardEntry{},
		"message":           "Global leaderboard data",
	})
}

func nonNil(entries []models.LeaderboardEntry) []models.LeaderboardEntry {
	if entries == nil {
		return []models.LeaderboardEntry{}
	}
	return entries
}

func (s *Server) handleGlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Reports.GlobalLeaderboard(r.Context())
	if err != nil {
		slog.Error("failed to fetch global leaderboard", "error", err)
		w.Header().Set("X-Fallback-Data", "true")
		w.Header().Set("Cache-Control", "no-cache")
		writeJSON(w, http.StatusOK, []models.GlobalLeaderboardEntry{})
		return
	}
	if entries == nil {
		entries = []models.GlobalLeaderboardEntry{}
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleUserHistory(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	userID := chi.URLParam(r, "userID")

	if userID != user.ID {
		writeJSON(w, http.StatusForbidden, legacyError{Error: "user_id does not match the authenticated user"})
		return
	}

	history, err := s.deps.Reports.History(r.Context(), userID)
	if err != nil {
		slog.Error("failed to fetch history", "error", err, "user", userID)
		writeJSON(w, http.StatusOK, s.deps.Reports.EmptyHistory(userID))
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=30")
	writeJSON(w, http.StatusOK, history)
}

// emailAllowed reports whether user may read reports filed under email.
// Tokens without an email claim match nothing.
func emailAllowed(user *models.User, email string) bool {
	return user.Email != "" && strings.EqualFold(user.Email, email)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	rawID := r.URL.Query().Get("interview_id")
	email := r.URL.Query().Get("user_email")

	if rawID == "" || email == "" {
		writeJSON(w, http.StatusBadRequest, legacyError{Error: "Missing parameters"})
		return
	}
	interviewID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || interviewID <= 0 {
		writeJSON(w, http.StatusBadRequest, legacyError{Error: "Missing parameters"})
		return
	}
	if !emailAllowed(user, email) {
		writeJSON(w, http.StatusForbidden, legacyError{Error: "user_email does not match the authenticated user"})
		return
	}

	report, err := s.deps.Reports.Report(r.Context(), interviewID, email)
	if err != nil {
		if errors.Is(err, reporting.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, legacyError{Error: "No report found!"})
			return
		}
		slog.Error("failed to build report", "error", err, "interview_id", interviewID)
		writeJSON(w, http.StatusInternalServerError, legacyError{Error: "Server error generating report"})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleUserInterviews(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	email := r.URL.Query().Get("user_email")

	if email == "" {
		writeJSON(w, http.StatusBadRequest, legacyError{Error: "Missing user_email"})
		return
	}
	if !emailAllowed(user, email) {
		writeJSON(w, http.StatusForbidden, legacyError{Error: "user_email does not match the authenticated user"})
		return
	}

	interviews, err := s.deps.Reports.UserInterviews(r.Context(), email)
	if err != nil {
		if errors.Is(err, reporting.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, legacyError{Error: "No interviews found"})
			return
		}
		slog.Error("failed to list interviews", "error", err)
		writeJSON(w, http.StatusInternalServerError, legacyError{Error: "Server error."})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_email": email,
		"interviews": interviews,
	})
}
