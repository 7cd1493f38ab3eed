package services

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Registry manages the backing service providers
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	optional  map[string]bool
	timeout   time.Duration
}

// NewRegistry creates a new service registry. Each health check is bounded
// by timeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Registry{
		providers: make(map[string]Provider),
		optional:  make(map[string]bool),
		timeout:   timeout,
	}
}

// Register adds a required provider to the registry
func (r *Registry) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
	delete(r.optional, name)
}

// RegisterOptional adds a provider whose failure degrades but does not
// fail readiness
func (r *Registry) RegisterOptional(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
	r.optional[name] = true
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a provider from the registry
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
	delete(r.optional, name)
}

// Status is the outcome of one health check
type Status struct {
	Type     string `json:"type"`
	Healthy  bool   `json:"healthy"`
	Optional bool   `json:"optional,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Report is the outcome of HealthCheckAll
type Report struct {
	Ready    bool              `json:"ready"`
	Services map[string]Status `json:"services"`
}

// HealthCheckAll checks every provider concurrently. The report is ready
// when every required provider is healthy.
func (r *Registry) HealthCheckAll(ctx context.Context) Report {
	r.mu.RLock()
	providers := make(map[string]Provider, len(r.providers))
	optional := make(map[string]bool, len(r.optional))
	for name, p := range r.providers {
		providers[name] = p
		optional[name] = r.optional[name]
	}
	r.mu.RUnlock()

	var mu sync.Mutex
	var wg sync.WaitGroup
	report := Report{Ready: true, Services: make(map[string]Status, len(providers))}

	for name, provider := range providers {
		wg.Add(1)
		go func(name string, provider Provider) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			status := Status{Type: provider.Type(), Healthy: true, Optional: optional[name]}
			if err := provider.HealthCheck(checkCtx); err != nil {
				status.Healthy = false
				status.Error = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			report.Services[name] = status
			if !status.Healthy && !status.Optional {
				report.Ready = false
			}
		}(name, provider)
	}

	wg.Wait()
	return report
}
