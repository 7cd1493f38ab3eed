// Package llm wraps hosted language model vendors behind one interface
// that returns schema-validated JSON.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates structured output from a hosted model.
type Provider interface {
	// Generate sends the request and returns the model output. When the
	// request carries a Schema, Content holds JSON that validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier requests are sent to.
	ModelID() string
}

// Request describes a single prompt.
type Request struct {
	System      string
	Messages    []Message
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

// Message is one turn of the prompt.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UserPrompt builds a single-turn request.
func UserPrompt(system, prompt string) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	}
}

// Schema is the JSON Schema the output must satisfy.
type Schema struct {
	// Name identifies the schema for vendors and the compiled schema cache.
	Name        string
	Description string
	Definition  map[string]any

	// Strict asks vendors that support it to reject any output outside the
	// schema. Leave it off when callers clean loosely typed fields themselves.
	Strict bool
}

// Response holds the model output.
type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string // "end" or "max_tokens"
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
