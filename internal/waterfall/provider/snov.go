package provider

import (
	"context"

	"github.com/sells-group/contact-enricher/internal/poll"
	"github.com/sells-group/contact-enricher/pkg/snov"
)

// Snov resolves names and company phones through Snov's asynchronous
// domain searches.
type Snov struct {
	Unsupported
	base
	client snov.Client
}

// NewSnov creates the Snov adapter. A nil client disables it.
func NewSnov(client snov.Client, opts ...Option) *Snov {
	return &Snov{
		base:   newBase("snov", client != nil, opts),
		client: client,
	}
}

// FindIdentity starts a prospect search for decision-makers and polls it.
func (s *Snov) FindIdentity(ctx context.Context, domain string) (string, bool) {
	var name string
	ok := s.run(ctx, OpIdentity, domain, func(ctx context.Context) (bool, error) {
		task, err := s.submit(ctx, OpIdentity, func(ctx context.Context) (string, error) {
			return s.client.StartProspectSearch(ctx, snov.ProspectSearchRequest{
				Domain:    domain,
				Positions: snov.DecisionMakerPositions,
				Limit:     1,
			})
		})
		if err != nil || task == nil {
			return false, err
		}

		var checkErr error
		prospect, found := poll.PollUntilDone(ctx, s.poller, task, func(ctx context.Context, handle string) (poll.Observation[snov.Prospect], error) {
			var res *snov.ProspectResult
			checkErr = s.do(ctx, OpIdentity, func(ctx context.Context) error {
				var err error
				res, err = s.client.ProspectResult(ctx, handle)
				return err
			})
			if checkErr != nil {
				return poll.Observation[snov.Prospect]{}, checkErr
			}
			return prospectObservation(res), nil
		})
		if !found {
			return false, checkErr
		}
		name = prospect.FullName()
		return name != "", nil
	})
	return name, ok
}

// FindCompanyPhone starts a company search and polls it for the HQ phone.
func (s *Snov) FindCompanyPhone(ctx context.Context, domain string) (string, bool) {
	var phone string
	ok := s.run(ctx, OpPhone, domain, func(ctx context.Context) (bool, error) {
		task, err := s.submit(ctx, OpPhone, func(ctx context.Context) (string, error) {
			return s.client.StartCompanySearch(ctx, domain)
		})
		if err != nil || task == nil {
			return false, err
		}

		var checkErr error
		phone, _ = poll.PollUntilDone(ctx, s.poller, task, func(ctx context.Context, handle string) (poll.Observation[string], error) {
			var res *snov.CompanyResult
			checkErr = s.do(ctx, OpPhone, func(ctx context.Context) error {
				var err error
				res, err = s.client.CompanyResult(ctx, handle)
				return err
			})
			if checkErr != nil {
				return poll.Observation[string]{}, checkErr
			}
			return companyObservation(res), nil
		})
		return phone != "", checkErr
	})
	return phone, ok
}

// submit starts a search. An empty task hash means Snov had nothing to
// search for and yields a nil task without error.
func (s *Snov) submit(ctx context.Context, op string, start func(ctx context.Context) (string, error)) (*poll.Task, error) {
	var hash string
	err := s.do(ctx, op, func(ctx context.Context) error {
		var err error
		hash, err = start(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if hash == "" {
		return nil, nil
	}
	return s.poller.Submit(ctx, func(context.Context) (string, error) { return hash, nil })
}

// prospectObservation treats any returned prospect as completion, since
// Snov can report prospects while the task is still marked in progress.
func prospectObservation(res *snov.ProspectResult) poll.Observation[snov.Prospect] {
	if len(res.Prospects) > 0 {
		return poll.Observation[snov.Prospect]{Status: poll.StatusCompleted, Payload: res.Prospects[0], Found: true}
	}
	return poll.Observation[snov.Prospect]{Status: pollStatus(res.Status)}
}

func companyObservation(res *snov.CompanyResult) poll.Observation[string] {
	if res.HQPhone != "" {
		return poll.Observation[string]{Status: poll.StatusCompleted, Payload: res.HQPhone, Found: true}
	}
	return poll.Observation[string]{Status: pollStatus(res.Status)}
}

func pollStatus(s string) poll.Status {
	switch s {
	case snov.StatusCompleted:
		return poll.StatusCompleted
	case snov.StatusFailed:
		return poll.StatusFailed
	default:
		return poll.Status(s)
	}
}
