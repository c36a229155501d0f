package provider

import (
	"context"
	"strings"

	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/pkg/hunter"
)

// Hunter finds emails for a known person and runs domain-wide searches.
type Hunter struct {
	Unsupported
	base
	client hunter.Client
}

// NewHunter creates the Hunter adapter. A nil client disables it.
func NewHunter(client hunter.Client, opts ...Option) *Hunter {
	return &Hunter{
		base:   newBase("hunter", client != nil, opts),
		client: client,
	}
}

// FindEmail looks up name at domain. A deliverable address is marked
// verified; otherwise Hunter's best guess is returned unverified.
func (h *Hunter) FindEmail(ctx context.Context, name, domain string) (Email, bool) {
	first, last := model.SplitName(name)
	if first == "" || domain == "" {
		return Email{}, false
	}

	var email Email
	ok := h.run(ctx, OpEmail, domain, func(ctx context.Context) (bool, error) {
		var data *hunter.EmailFinderData
		err := h.do(ctx, OpEmail, func(ctx context.Context) error {
			var err error
			data, err = h.client.FindEmail(ctx, hunter.EmailFinderRequest{Domain: domain, FirstName: first, LastName: last})
			return err
		})
		if err != nil {
			return false, err
		}
		email = Email{Address: strings.TrimSpace(data.Email), Verified: data.Deliverable()}
		return email.Address != "", nil
	})
	return email, ok
}

// FindAnyContact returns the first domain-search entry carrying an email.
// Entries without both name parts get a display name derived from the
// email's local part.
func (h *Hunter) FindAnyContact(ctx context.Context, domain string) (string, Email, bool) {
	var (
		name  string
		email Email
	)
	ok := h.run(ctx, OpAnyContact, domain, func(ctx context.Context) (bool, error) {
		var data *hunter.DomainSearchData
		err := h.do(ctx, OpAnyContact, func(ctx context.Context) error {
			var err error
			data, err = h.client.DomainSearch(ctx, domain)
			return err
		})
		if err != nil {
			return false, err
		}

		for _, e := range data.Emails {
			addr := strings.TrimSpace(e.Value)
			if addr == "" {
				continue
			}
			first, last := strings.TrimSpace(e.FirstName), strings.TrimSpace(e.LastName)
			if first != "" && last != "" {
				name = first + " " + last
			} else {
				name = model.NameFromEmail(addr)
			}
			email = Email{Address: addr, Verified: e.Verification.Status == hunter.VerificationDeliverable}
			return name != "", nil
		}
		return false, nil
	})
	return name, email, ok
}
