package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/interview-engine/internal/interview"
	"github.com/terra-clan/interview-engine/internal/models"
)

type createSessionRequest struct {
	Skill      string              `json:"skill"`
	Skills     []string            `json:"skills"`
	Difficulty string              `json:"difficulty"`
	InputMode  interview.InputMode `json:"input_mode"`
}

type nextQuestionRequest struct {
	Answer *string `json:"answer"`
}

type quitSessionRequest struct {
	Reason models.QuitReason `json:"reason"`
}

type updateTranscriptRequest struct {
	Mode interview.InputMode `json:"mode"`
	Text *string             `json:"text"`
}

// respondSessionError maps session manager errors to status codes
func respondSessionError(w http.ResponseWriter, err error, id string) {
	var se *interview.ScoringError
	switch {
	case errors.Is(err, interview.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "not_found", "session not found")
	case errors.Is(err, interview.ErrSubmitInProgress):
		respondError(w, http.StatusConflict, "submit_in_progress", err.Error())
	case errors.Is(err, interview.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid_transition", err.Error())
	case interview.IsClientError(err):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.As(err, &se):
		respondError(w, upstreamStatus(se.Reason), "scoring_failed", se.Message)
	default:
		slog.Error("session request failed", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// decodeOptional decodes a JSON body that may be empty
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	skills := req.Skills
	if len(skills) == 0 && req.Skill != "" {
		skills = models.SplitSkills(req.Skill)
	}
	if s.deps.Catalog != nil {
		skills = s.deps.Catalog.Canonical(skills)
	}

	session, err := s.deps.Sessions.Create(r.Context(), *user, interview.CreateOptions{
		Skills:     skills,
		Difficulty: req.Difficulty,
		InputMode:  req.InputMode,
	})
	if err != nil {
		respondSessionError(w, err, "")
		return
	}

	respondJSON(w, http.StatusAccepted, session.View())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := UserFromContext(r.Context())

	session, err := s.deps.Sessions.Get(r.Context(), id, user.ID)
	if err != nil {
		respondSessionError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleNextQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := UserFromContext(r.Context())

	var req nextQuestionRequest
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	session, err := s.deps.Sessions.Advance(r.Context(), id, user.ID, req.Answer)
	if err != nil {
		respondSessionError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, session.View())
}

func (s *Server) handlePrevQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := UserFromContext(r.Context())

	session, err := s.deps.Sessions.Retreat(r.Context(), id, user.ID)
	if err != nil {
		respondSessionError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleSubmitSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := UserFromContext(r.Context())

	session, err := s.deps.Sessions.Submit(r.Context(), id, user.ID)
	if err != nil {
		respondSessionError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleQuitSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := UserFromContext(r.Context())

	var req quitSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	session, err := s.deps.Sessions.Quit(r.Context(), id, user.ID, req.Reason)
	if err != nil {
		respondSessionError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleUpdateTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := UserFromContext(r.Context())

	var req updateTranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Mode == "" && req.Text == nil {
		respondError(w, http.StatusBadRequest, "validation_error", "mode or text is required")
		return
	}

	session, err := s.deps.Sessions.Get(r.Context(), id, user.ID)
	if err != nil {
		respondSessionError(w, err, id)
		return
	}

	if req.Mode != "" {
		if err := session.SetInputMode(req.Mode); err != nil {
			respondSessionError(w, err, id)
			return
		}
	}
	if req.Text != nil {
		if err := session.EditText(*req.Text); err != nil {
			respondSessionError(w, err, id)
			return
		}
	}

	respondJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := UserFromContext(r.Context())

	if err := s.deps.Sessions.Delete(r.Context(), id, user.ID); err != nil {
		respondSessionError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "session deleted",
	})
}
