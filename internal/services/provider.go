package services

import (
	"context"
)

// Provider is a backing service the engine depends on
type Provider interface {
	// Type returns the service type name
	Type() string

	// HealthCheck checks if the service is available
	HealthCheck(ctx context.Context) error
}

// BaseProvider provides common functionality for providers
type BaseProvider struct {
	serviceType string
}

// Type returns the service type
func (p *BaseProvider) Type() string {
	return p.serviceType
}

// CheckFunc adapts a plain function to Provider, for collaborators such as
// the speech-to-text server that only expose a health probe
type CheckFunc struct {
	BaseProvider
	check func(ctx context.Context) error
}

// NewCheckFunc creates a Provider of the given type backed by check
func NewCheckFunc(serviceType string, check func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{BaseProvider: BaseProvider{serviceType: serviceType}, check: check}
}

// HealthCheck runs the wrapped probe
func (c *CheckFunc) HealthCheck(ctx context.Context) error {
	return c.check(ctx)
}
