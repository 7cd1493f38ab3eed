package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/interview-engine/internal/catalog"
	"github.com/terra-clan/interview-engine/internal/config"
	"github.com/terra-clan/interview-engine/internal/interview"
	"github.com/terra-clan/interview-engine/internal/logins"
	"github.com/terra-clan/interview-engine/internal/models"
	"github.com/terra-clan/interview-engine/internal/services"
	"github.com/terra-clan/interview-engine/internal/stt"
)

// ReportReader serves the read-only history, leaderboard and report queries
type ReportReader interface {
	PersonalStats(ctx context.Context, userID string) ([]models.LeaderboardEntry, error)
	TopScores(ctx context.Context) ([]models.LeaderboardEntry, error)
	GlobalLeaderboard(ctx context.Context) ([]models.GlobalLeaderboardEntry, error)
	History(ctx context.Context, userID string) (*models.UserHistory, error)
	EmptyHistory(userID string) *models.UserHistory
	Report(ctx context.Context, interviewID int64, email string) (*models.Report, error)
	UserInterviews(ctx context.Context, email string) ([]models.InterviewSummary, error)
}

// LoginRecorder records sign-ins with duplicate suppression
type LoginRecorder interface {
	Record(ctx context.Context, login *models.UserLogin) (*logins.Outcome, error)
}

// Transcriber turns a recorded clip into text
type Transcriber interface {
	Transcribe(ctx context.Context, filename, contentType string, audio io.Reader) (*stt.Result, error)
}

// Deps are the collaborators behind the HTTP surface
type Deps struct {
	Sessions  *interview.Manager
	Questions interview.QuestionProvider
	Scorer    interview.Scorer
	Store     interview.Persister
	Logins    LoginRecorder
	Reports   ReportReader
	Catalog   *catalog.Loader
	STT       Transcriber
	Health    *services.Registry
}

// Server represents the HTTP API server
type Server struct {
	config  config.ServerConfig
	router  *chi.Mux
	deps    Deps
	auth    *AuthMiddleware
	limiter *RateLimiter
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, auth config.AuthConfig, deps Deps) *Server {
	s := &Server{
		config: cfg,
		deps:   deps,
		auth:   NewAuthMiddleware(auth.JWTSecret, auth.Issuer),
	}
	if cfg.RateLimit > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimit, time.Minute)
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// Limiter returns the rate limiter, nil when rate limiting is disabled
func (s *Server) Limiter() *RateLimiter {
	return s.limiter
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// Middleware stack
	r.Use(middleware.RequestID)
	if s.config.TrustedProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Fallback-Data"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Limit)
		}

		// Public: the question and scoring endpoints and the catalog
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))
			r.Post("/generate-questions", s.handleGenerateQuestions)
			r.Post("/score-answers", s.handleScoreAnswers)
			r.Get("/skills", s.handleListSkills)
			r.Get("/quit-reasons", s.handleListQuitReasons)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Authenticate)

			// Long-lived stream, no request timeout
			r.Get("/sessions/{id}/transcript/ws", s.handleTranscriptWS)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(timeout))

				r.Route("/sessions", func(r chi.Router) {
					r.Post("/", s.handleCreateSession)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", s.handleGetSession)
						r.Delete("/", s.handleDeleteSession)
						r.Post("/next", s.handleNextQuestion)
						r.Post("/prev", s.handlePrevQuestion)
						r.Post("/submit", s.handleSubmitSession)
						r.Post("/quit", s.handleQuitSession)
						r.Put("/transcript", s.handleUpdateTranscript)
					})
				})

				r.Post("/interviews", s.handleSaveInterview)
				r.Post("/logins", s.handleRecordLogin)
				r.Post("/transcribe", s.handleTranscribe)

				r.Get("/leaderboard", s.handleLeaderboard)
				r.Get("/leaderboard/global", s.handleGlobalLeaderboard)
				r.Get("/users/interviews", s.handleUserInterviews)
				r.Get("/users/{userID}/history", s.handleUserHistory)
				r.Get("/reports", s.handleReport)
			})
		})
	})

	s.router = r
}
