package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotConfigured is returned when the selected vendor has no credential.
	ErrNotConfigured = errors.New("llm provider not configured")

	// Causes wrapped by ErrInvalidResponse.
	ErrEmptyOutput    = errors.New("empty output")
	ErrNotJSON        = errors.New("output is not JSON")
	ErrMalformedJSON  = errors.New("malformed JSON")
	ErrSchemaMismatch = errors.New("output does not match schema")
)

// ErrMissingCredential names the credential a vendor needs.
type ErrMissingCredential struct {
	Name string
}

func (e *ErrMissingCredential) Error() string {
	return "missing " + e.Name
}

func (e *ErrMissingCredential) Unwrap() error { return ErrNotConfigured }

// ErrRateLimit indicates the vendor throttled the request.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the output could not be parsed as JSON or
// did not satisfy the requested schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid model output: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the vendor could not be reached or
// failed on its side.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err == nil {
		return "llm provider unavailable"
	}
	return fmt.Sprintf("llm provider unavailable: %v", e.Err)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the output was truncated.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "model output truncated: max tokens exceeded"
}

// IsInvalidResponse reports whether err is, or wraps, an *ErrInvalidResponse.
func IsInvalidResponse(err error) bool {
	var inv *ErrInvalidResponse
	return errors.As(err, &inv)
}
