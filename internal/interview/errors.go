package interview

import (
	"errors"
	"fmt"

	"github.com/terra-clan/interview-engine/internal/llm"
)

// Common errors
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrEmptyAnswer       = errors.New("answer is empty")
	ErrInvalidTransition = errors.New("action not allowed in current phase")
	ErrSubmitInProgress  = errors.New("submission already in progress")
	ErrInvalidQuitReason = errors.New("invalid quit reason")
	ErrInvalidRequest    = errors.New("invalid request")
)

// Reason classifies a collaborator failure
type Reason string

const (
	// ReasonUnconfigured means the server has no credential for the model vendor
	ReasonUnconfigured Reason = "unconfigured"
	// ReasonUnavailable means the vendor could not be reached or failed
	ReasonUnavailable Reason = "unavailable"
	// ReasonMalformed means the vendor answered with something that is not usable JSON
	ReasonMalformed Reason = "malformed"
	// ReasonEmpty means the vendor answered with JSON that carried nothing usable
	ReasonEmpty Reason = "empty"
)

// QuestionError is the single failure type of a QuestionProvider
type QuestionError struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *QuestionError) Error() string {
	return fmt.Sprintf("could not generate questions: %s", e.Message)
}

func (e *QuestionError) Unwrap() error { return e.Err }

// ScoringError is the single failure type of a Scorer
type ScoringError struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("could not score answers: %s", e.Message)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// classify maps an llm error to a reason and a user facing message.
// emptyMessage is used when the output parsed but carried no usable data.
func classify(err error, emptyMessage string) (Reason, string) {
	var missing *llm.ErrMissingCredential
	switch {
	case errors.As(err, &missing):
		return ReasonUnconfigured, "Server misconfigured: " + missing.Error()
	case errors.Is(err, llm.ErrNotConfigured):
		return ReasonUnconfigured, "Server misconfigured: missing model credential"
	case errors.Is(err, llm.ErrEmptyOutput):
		return ReasonMalformed, "Empty response from model"
	case errors.Is(err, llm.ErrNotJSON):
		return ReasonMalformed, "Model returned non-JSON output"
	case errors.Is(err, llm.ErrMalformedJSON):
		return ReasonMalformed, "Model returned malformed JSON"
	case errors.Is(err, llm.ErrSchemaMismatch):
		return ReasonEmpty, emptyMessage
	case llm.IsInvalidResponse(err):
		return ReasonMalformed, "Model returned malformed JSON"
	}

	var maxTok *llm.ErrMaxTokensExceeded
	if errors.As(err, &maxTok) {
		return ReasonMalformed, "Model output was truncated"
	}
	return ReasonUnavailable, err.Error()
}
