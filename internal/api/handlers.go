package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/terra-clan/interview-engine/internal/interview"
	"github.com/terra-clan/interview-engine/internal/models"
	"github.com/terra-clan/interview-engine/internal/stt"
)

// maxQuestionCount bounds the count accepted by generate-questions
const maxQuestionCount = 50

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// writeJSON writes v without the envelope, for endpoints that keep their
// historical response shapes
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type legacyError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// upstreamStatus maps a collaborator failure to a status code: unusable
// model output is a bad gateway, everything else a server error
func upstreamStatus(reason interview.Reason) int {
	switch reason {
	case interview.ReasonMalformed, interview.ReasonEmpty:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if s.deps.Sessions != nil {
		data["sessions"] = s.deps.Sessions.Count()
	}
	respondJSON(w, http.StatusOK, data)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	report := s.deps.Health.HealthCheckAll(r.Context())
	if !report.Ready {
		slog.Warn("service not ready", "services", report.Services)
		respondJSON(w, http.StatusServiceUnavailable, report)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Question and scoring handlers

type generateQuestionsRequest struct {
	Skill      string `json:"skill"`
	Difficulty string `json:"difficulty"`
	Count      *int   `json:"count"`
}

func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var body generateQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, legacyError{Error: "invalid JSON body"})
		return
	}

	req := interview.QuestionRequest{
		Skill:      body.Skill,
		Difficulty: body.Difficulty,
		Count:      interview.DefaultQuestionCount,
	}
	if body.Count != nil {
		req.Count = *body.Count
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, legacyError{Error: "skill and difficulty are required, count must be positive"})
		return
	}
	if req.Count > maxQuestionCount {
		req.Count = maxQuestionCount
	}

	questions, err := s.deps.Questions.Questions(r.Context(), req)
	if err != nil {
		var qe *interview.QuestionError
		if errors.As(err, &qe) {
			slog.Warn("question generation failed", "reason", qe.Reason, "error", err)
			writeJSON(w, upstreamStatus(qe.Reason), legacyError{Error: qe.Message})
			return
		}
		slog.Error("question generation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, legacyError{Error: "Internal error generating questions"})
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"questions": questions})
}

func (s *Server) handleScoreAnswers(w http.ResponseWriter, r *http.Request) {
	var req interview.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, legacyError{Error: "invalid JSON body"})
		return
	}

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, legacyError{Error: "skill, difficulty, questions and answers are required and must match in length"})
		return
	}

	result, err := s.deps.Scorer.Score(r.Context(), req)
	if err != nil {
		var se *interview.ScoringError
		if errors.As(err, &se) {
			slog.Warn("scoring failed", "reason", se.Reason, "error", err)
			writeJSON(w, upstreamStatus(se.Reason), legacyError{Error: se.Message})
			return
		}
		slog.Error("scoring failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, legacyError{Error: "Failed to score answers"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Catalog handlers

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	cat := s.deps.Catalog.Catalog()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories":   cat.Categories,
		"difficulties": cat.Difficulties,
		"max_skills":   interview.MaxSkills,
		"total":        s.deps.Catalog.Count(),
	})
}

func (s *Server) handleListQuitReasons(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reasons": models.QuitReasons,
	})
}

// Speech-to-text handler

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.deps.STT == nil {
		respondError(w, http.StatusServiceUnavailable, "stt_unavailable", "speech-to-text is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, stt.MaxClipSize+1<<20)
	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "No audio file provided")
		return
	}
	defer file.Close()

	result, err := s.deps.STT.Transcribe(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, stt.ErrRejected) {
			respondError(w, http.StatusBadRequest, "audio_rejected", err.Error())
			return
		}
		slog.Error("transcription failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "stt_unavailable", "speech-to-text server unavailable")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
