package llm

import (
	"fmt"
	"time"
)

// Config selects and configures the vendor.
type Config struct {
	// Provider is one of "gemini", "openai", "anthropic" or "mock".
	Provider string

	Gemini    GeminiConfig
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Retry     RetryConfig

	// Timeout bounds a single Generate call including retries.
	Timeout time.Duration
}

// GeminiConfig holds Gemini settings.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// OpenAIConfig holds OpenAI settings. BaseURL allows compatible gateways.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// AnthropicConfig holds Anthropic settings.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// DefaultConfig returns Gemini with retries disabled; callers that need
// retries own that policy.
func DefaultConfig() Config {
	return Config{
		Provider:  "gemini",
		Gemini:    GeminiConfig{Model: "gemini-flash"},
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini"},
		Anthropic: AnthropicConfig{Model: "claude-haiku"},
		Retry: RetryConfig{
			MaxAttempts: 1,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 60 * time.Second,
	}
}

// Configured reports whether the selected vendor has a credential.
func (c Config) Configured() bool {
	switch c.Provider {
	case "gemini":
		return c.Gemini.APIKey != ""
	case "openai":
		return c.OpenAI.APIKey != ""
	case "anthropic":
		return c.Anthropic.APIKey != ""
	case "mock":
		return true
	}
	return false
}

// CredentialName returns the environment variable expected for the vendor.
func (c Config) CredentialName() string {
	switch c.Provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	default:
		return "GEMINI_API_KEY"
	}
}

// Validate checks the provider name.
func (c Config) Validate() error {
	switch c.Provider {
	case "gemini", "openai", "anthropic", "mock":
		return nil
	}
	return fmt.Errorf("unknown LLM provider: %q", c.Provider)
}
