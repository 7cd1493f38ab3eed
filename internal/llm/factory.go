package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NewProvider builds the configured vendor wrapped as
// caller -> timeout -> retry -> logging -> vendor.
// A vendor without a credential yields a provider that fails every request
// with ErrNotConfigured, so the service still starts.
func NewProvider(ctx context.Context, cfg Config, logger *slog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.Configured() {
		return &unconfigured{credential: cfg.CredentialName()}, nil
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "mock":
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	p := WithRetry(WithLogging(base, logger), cfg.Retry)
	if cfg.Timeout > 0 {
		p = &timeoutProvider{inner: p, timeout: cfg.Timeout}
	}
	return p, nil
}

type timeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

func (t *timeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *timeoutProvider) ModelID() string {
	return t.inner.ModelID()
}

type unconfigured struct {
	credential string
}

func (u *unconfigured) Generate(context.Context, Request) (*Response, error) {
	return nil, &ErrMissingCredential{Name: u.credential}
}

func (u *unconfigured) ModelID() string {
	return "unconfigured"
}

// resolveModel maps a friendly model name to a vendor model ID. Unknown
// names are used as-is.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
