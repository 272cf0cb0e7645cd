package subscription

import (
	"errors"
	"fmt"
	"sync"
)

// Registry maps driver tags to payment provider implementations. Providers
// register at process start; lookups happen per lifecycle operation using the
// driver tag stored on each subscription.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]PaymentProvider
}

// NewRegistry creates a registry pre-populated with the given providers.
// Panics on a duplicate driver tag to fail fast on wiring mistakes.
func NewRegistry(providers ...PaymentProvider) *Registry {
	r := &Registry{providers: make(map[string]PaymentProvider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds a provider under its driver tag.
// Panics if the tag is already taken to prevent silent overwrites.
func (r *Registry) Register(p PaymentProvider) {
	if p == nil {
		panic("subscription: nil payment provider")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.Driver()]; exists {
		panic("subscription: provider already registered for driver " + p.Driver())
	}
	r.providers[p.Driver()] = p
}

// Provider returns the implementation registered for the driver tag.
func (r *Registry) Provider(driver string) (PaymentProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[driver]
	if !ok {
		return nil, errors.Join(ErrUnknownDriver, fmt.Errorf("driver %q", driver))
	}
	return p, nil
}
