package container

import (
	"fmt"
	"sync"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the beans of one feature.
//
// Register is called as soon as the provider is added and contributes
// definitions and post-processors. Boot is called after the container has
// been built, making it safe to look up any bean inside Boot.
//
//	type GreetingProvider struct{ container.BaseProvider }
//
//	func (p *GreetingProvider) Register(c *container.Container) error {
//	    return c.Register(
//	        container.Define("greetingRepository", NewRepository),
//	        container.Define("greetingService", NewService, container.Requires[Repository]()),
//	    )
//	}
//
//	func (p *GreetingProvider) Boot(c *container.Container) error {
//	    svc, err := container.Get[*Service](c)
//	    ...
//	}
type ServiceProvider interface {
	// Register adds definitions to the container.
	// Do NOT look beans up here; use Boot for that.
	Register(c *Container) error

	// Boot runs once the container is ready.
	Boot(c *Container) error

	// Provides lists the bean names this provider registers, for
	// diagnostics. Return nil if unknown.
	Provides() []string
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct that provides no-op implementations
// of Boot and Provides. Embed it in your provider and only override what
// you need.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(c *container.Container) error { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []string     { return nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders.
//
// No provider callback runs under the registry's lock, so a provider may
// register further providers from its Register or Boot method.
type ProviderRegistry struct {
	mu         sync.Mutex
	c          *Container
	providers  []ServiceProvider
	registered map[ServiceProvider]bool
	booting    bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to c.
func NewProviderRegistry(c *Container) *ProviderRegistry {
	return &ProviderRegistry{
		c:          c,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register method. Adding the same
// provider twice is a no-op. If the registry has already booted, the
// provider is booted immediately and its beans are created on first lookup.
// A provider added while Boot is running is booted by that Boot call.
func (r *ProviderRegistry) Register(p ServiceProvider) error {
	r.mu.Lock()
	if r.registered[p] {
		r.mu.Unlock()
		return nil
	}
	r.registered[p] = true
	r.mu.Unlock()

	if err := p.Register(r.c); err != nil {
		r.mu.Lock()
		delete(r.registered, p)
		r.mu.Unlock()
		return fmt.Errorf("provider %T: register: %w", p, err)
	}

	r.mu.Lock()
	r.providers = append(r.providers, p)
	bootNow := r.booted
	r.mu.Unlock()

	if bootNow {
		if err := p.Boot(r.c); err != nil {
			return fmt.Errorf("provider %T: boot: %w", p, err)
		}
	}
	return nil
}

// Boot builds the container, then calls Boot on every provider in
// registration order, including providers registered along the way. It
// stops at the first failure. Calling Boot again after it succeeded, or
// from inside a provider's Boot, is a no-op.
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted || r.booting {
		r.mu.Unlock()
		return nil
	}
	r.booting = true
	r.mu.Unlock()

	err := r.boot()

	r.mu.Lock()
	r.booting = false
	r.booted = err == nil
	r.mu.Unlock()
	return err
}

func (r *ProviderRegistry) boot() error {
	if err := r.c.Build(); err != nil {
		return err
	}
	for i := 0; ; i++ {
		r.mu.Lock()
		if i >= len(r.providers) {
			r.mu.Unlock()
			return nil
		}
		p := r.providers[i]
		r.mu.Unlock()

		if err := p.Boot(r.c); err != nil {
			return fmt.Errorf("provider %T: boot: %w", p, err)
		}
	}
}

// Booted returns true once Boot has succeeded.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the registered providers in registration order.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.providers...)
}
