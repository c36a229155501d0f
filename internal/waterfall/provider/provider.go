// Package provider defines the contact providers consulted by the waterfall
// and adapters for Apollo, Hunter and Snov.
package provider

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
)

// Capability names, used for metrics labels and logs.
const (
	OpIdentity   = "identity"
	OpEmail      = "email"
	OpAnyContact = "any_contact"
	OpPhone      = "phone"
)

// Email is an address together with the provider's deliverability signal.
type Email struct {
	Address  string `json:"address"`
	Verified bool   `json:"verified"`
}

// Provider answers contact questions about a company domain. Every method
// reports "no result" with ok=false; provider failures never surface as errors.
type Provider interface {
	// Name returns the provider identifier used in stage configuration.
	Name() string
	// FindIdentity returns a decision-maker's full name.
	FindIdentity(ctx context.Context, domain string) (string, bool)
	// FindEmail returns the email of the named person at domain.
	FindEmail(ctx context.Context, name, domain string) (Email, bool)
	// FindAnyContact returns the first usable (name, email) pair for domain.
	FindAnyContact(ctx context.Context, domain string) (string, Email, bool)
	// FindCompanyPhone returns the company's main phone number.
	FindCompanyPhone(ctx context.Context, domain string) (string, bool)
}

// Unsupported answers "no result" for every capability. Adapters embed it
// and override what their provider can do.
type Unsupported struct{}

// FindIdentity reports no result.
func (Unsupported) FindIdentity(context.Context, string) (string, bool) {
	return "", false
}

// FindEmail reports no result.
func (Unsupported) FindEmail(context.Context, string, string) (Email, bool) {
	return Email{}, false
}

// FindAnyContact reports no result.
func (Unsupported) FindAnyContact(context.Context, string) (string, Email, bool) {
	return "", Email{}, false
}

// FindCompanyPhone reports no result.
func (Unsupported) FindCompanyPhone(context.Context, string) (string, bool) {
	return "", false
}

// ErrUnknownProvider is returned by Resolve for a name that was never registered.
var ErrUnknownProvider = eris.New("provider: unknown provider")

// Registry manages available providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry holding ps.
func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
	}
	for _, p := range ps {
		r.Register(p)
	}
	return r
}

// Register adds a provider, replacing any provider with the same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not found.
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// List returns all registered provider names in sorted order.
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

// Resolve maps an ordered list of names to providers, preserving order.
func (r *Registry) Resolve(names []string) ([]Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(names))
	for _, name := range names {
		p, ok := r.providers[name]
		if !ok {
			return nil, eris.Wrapf(ErrUnknownProvider, "resolve %q", name)
		}
		out = append(out, p)
	}
	return out, nil
}
