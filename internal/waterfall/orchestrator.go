// Package waterfall runs the contact enrichment state machine: identity
// providers in order, then email, then phone, with a domain-wide fallback
// when no name can be found.
package waterfall

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/waterfall/provider"
)

// Orchestrator sequences providers for one domain at a time. It keeps no
// per-domain state between calls.
type Orchestrator struct {
	identity []provider.Provider
	email    []provider.Provider
	fallback []provider.Provider
	phone    []provider.Provider
}

// NewOrchestrator resolves cfg's stages against reg.
func NewOrchestrator(cfg *Config, reg *provider.Registry) (*Orchestrator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	r, err := cfg.resolve(reg)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		identity: r.identity,
		email:    r.email,
		fallback: r.fallback,
		phone:    r.phone,
	}, nil
}

// Enrich walks SEEK_NAME, SEEK_EMAIL and SEEK_PHONE for domain. Provider
// failures never abort the walk; the returned Result records how far it got.
func (o *Orchestrator) Enrich(ctx context.Context, domain string) *Result {
	res := &Result{Domain: domain, State: StateSeekName}
	log := zap.L().With(zap.String("domain", domain))

	o.seekName(ctx, res)
	if !res.Name.Set() {
		res.State = StateFailed
		log.Info("waterfall: no decision-maker found", zap.Int("steps", len(res.Steps)))
		return res
	}

	if !res.Email.Set() {
		res.State = StateSeekEmail
		o.seekEmail(ctx, res)
		if !res.Email.Set() {
			// The fallback is only for unresolved names, so the attempt stalls here.
			log.Info("waterfall: no email for resolved name",
				zap.String("name", res.Name.Value),
				zap.String("name_source", res.Name.Source),
			)
			return res
		}
	}

	res.State = StateSeekPhone
	o.seekPhone(ctx, res)

	res.State = StateDone
	log.Info("waterfall: contact resolved",
		zap.String("name_source", res.Name.Source),
		zap.String("email_source", res.Email.Source),
		zap.Bool("verified", res.Verified),
		zap.Bool("phone", res.Phone.Set()),
	)
	return res
}

func (o *Orchestrator) seekName(ctx context.Context, res *Result) {
	for _, p := range o.identity {
		if ctx.Err() != nil {
			return
		}
		name, ok := p.FindIdentity(ctx, res.Domain)
		res.step(provider.OpIdentity, p, ok)
		if ok && set(&res.Name, name, p.Name()) {
			return
		}
	}

	for _, p := range o.fallback {
		if ctx.Err() != nil {
			return
		}
		name, email, ok := p.FindAnyContact(ctx, res.Domain)
		res.step(provider.OpAnyContact, p, ok)
		if !ok || name == "" || email.Address == "" {
			continue
		}
		set(&res.Name, name, p.Name())
		set(&res.Email, email.Address, p.Name())
		res.Verified = email.Verified
		return
	}
}

func (o *Orchestrator) seekEmail(ctx context.Context, res *Result) {
	for _, p := range o.email {
		if ctx.Err() != nil {
			return
		}
		email, ok := p.FindEmail(ctx, res.Name.Value, res.Domain)
		res.step(provider.OpEmail, p, ok)
		if ok && set(&res.Email, email.Address, p.Name()) {
			res.Verified = email.Verified
			return
		}
	}
}

func (o *Orchestrator) seekPhone(ctx context.Context, res *Result) {
	for _, p := range o.phone {
		if ctx.Err() != nil {
			return
		}
		phone, ok := p.FindCompanyPhone(ctx, res.Domain)
		res.step(provider.OpPhone, p, ok)
		if ok && set(&res.Phone, phone, p.Name()) {
			return
		}
	}
}
