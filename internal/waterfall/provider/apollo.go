package provider

import (
	"context"
	"strings"

	"github.com/sells-group/contact-enricher/pkg/apollo"
)

// Apollo resolves decision-maker names through Apollo's people match.
type Apollo struct {
	Unsupported
	base
	client apollo.Client
}

// NewApollo creates the Apollo adapter. A nil client disables it.
func NewApollo(client apollo.Client, opts ...Option) *Apollo {
	return &Apollo{
		base:   newBase("apollo", client != nil, opts),
		client: client,
	}
}

// FindIdentity matches the best decision-maker at domain.
func (a *Apollo) FindIdentity(ctx context.Context, domain string) (string, bool) {
	var name string
	ok := a.run(ctx, OpIdentity, domain, func(ctx context.Context) (bool, error) {
		var resp *apollo.PersonMatchResponse
		err := a.do(ctx, OpIdentity, func(ctx context.Context) error {
			var err error
			resp, err = a.client.MatchPerson(ctx, apollo.PersonMatchRequest{
				Domain:               domain,
				RevealPersonalEmails: true,
				Titles:               apollo.DecisionMakerTitles,
			})
			return err
		})
		if err != nil {
			return false, err
		}
		if resp.Person == nil {
			return false, nil
		}
		name = strings.TrimSpace(resp.Person.Name)
		if name == "" {
			name = strings.TrimSpace(resp.Person.FirstName + " " + resp.Person.LastName)
		}
		return name != "", nil
	})
	return name, ok
}
