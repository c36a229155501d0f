package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-enricher/pkg/snov"
)

type fakeSnov struct {
	startHash     string
	startErr      error
	prospects     []*snov.ProspectResult
	companies     []*snov.CompanyResult
	resultErr     error
	startCalls    int
	resultCalls   int
	lastProspects snov.ProspectSearchRequest
}

func (f *fakeSnov) StartProspectSearch(_ context.Context, req snov.ProspectSearchRequest) (string, error) {
	f.startCalls++
	f.lastProspects = req
	return f.startHash, f.startErr
}

func (f *fakeSnov) ProspectResult(_ context.Context, hash string) (*snov.ProspectResult, error) {
	f.resultCalls++
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	i := min(f.resultCalls-1, len(f.prospects)-1)
	return f.prospects[i], nil
}

func (f *fakeSnov) StartCompanySearch(_ context.Context, _ string) (string, error) {
	f.startCalls++
	return f.startHash, f.startErr
}

func (f *fakeSnov) CompanyResult(_ context.Context, _ string) (*snov.CompanyResult, error) {
	f.resultCalls++
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	i := min(f.resultCalls-1, len(f.companies)-1)
	return f.companies[i], nil
}

func TestSnov_FindIdentity(t *testing.T) {
	tests := []struct {
		name        string
		results     []*snov.ProspectResult
		wantName    string
		wantOK      bool
		wantResults int
	}{
		{
			name: "completed on third poll",
			results: []*snov.ProspectResult{
				{Status: "in_progress"},
				{Status: "in_progress"},
				{Status: snov.StatusCompleted, Prospects: []snov.Prospect{{FirstName: "Grace", LastName: "Hopper"}}},
			},
			wantName:    "Grace Hopper",
			wantOK:      true,
			wantResults: 3,
		},
		{
			name:        "prospects before completion",
			results:     []*snov.ProspectResult{{Status: "in_progress", Prospects: []snov.Prospect{{Name: "Grace Hopper"}}}},
			wantName:    "Grace Hopper",
			wantOK:      true,
			wantResults: 1,
		},
		{
			name:        "completed empty",
			results:     []*snov.ProspectResult{{Status: snov.StatusCompleted}},
			wantResults: 1,
		},
		{
			name:        "failed",
			results:     []*snov.ProspectResult{{Status: "in_progress"}, {Status: snov.StatusFailed}},
			wantResults: 2,
		},
		{
			name:        "never completes",
			results:     []*snov.ProspectResult{{Status: "in_progress"}},
			wantResults: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSnov{startHash: "h1", prospects: tt.results}
			s := NewSnov(fake, WithPoller(instantPoller(5)))

			name, ok := s.FindIdentity(context.Background(), "acme.io")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantResults, fake.resultCalls)
			assert.Equal(t, snov.ProspectSearchRequest{Domain: "acme.io", Positions: snov.DecisionMakerPositions, Limit: 1}, fake.lastProspects)
		})
	}
}

func TestSnov_FindIdentity_NoTaskHash(t *testing.T) {
	rec := &callRecorder{}
	fake := &fakeSnov{}
	_, ok := NewSnov(fake, WithPoller(instantPoller(5)), WithRecorder(rec)).FindIdentity(context.Background(), "acme.io")
	assert.False(t, ok)
	assert.Zero(t, fake.resultCalls)
	assert.Equal(t, []string{"snov/identity/not_found"}, rec.Calls())
}

func TestSnov_FindIdentity_StartError(t *testing.T) {
	rec := &callRecorder{}
	fake := &fakeSnov{startErr: &snov.APIError{StatusCode: 401}}
	_, ok := NewSnov(fake, WithPoller(instantPoller(5)), WithRecorder(rec)).FindIdentity(context.Background(), "acme.io")
	assert.False(t, ok)
	assert.Equal(t, []string{"snov/identity/error"}, rec.Calls())
}

func TestSnov_FindIdentity_ResultError(t *testing.T) {
	rec := &callRecorder{}
	fake := &fakeSnov{startHash: "h1", resultErr: errors.New("decode")}
	_, ok := NewSnov(fake, WithPoller(instantPoller(5)), WithRecorder(rec)).FindIdentity(context.Background(), "acme.io")
	assert.False(t, ok)
	assert.Equal(t, 1, fake.resultCalls)
	assert.Equal(t, []string{"snov/identity/error"}, rec.Calls())
}

func TestSnov_FindCompanyPhone(t *testing.T) {
	fake := &fakeSnov{startHash: "c1", companies: []*snov.CompanyResult{
		{Status: "in_progress"},
		{Status: snov.StatusCompleted, HQPhone: "+1 555 0100"},
	}}
	phone, ok := NewSnov(fake, WithPoller(instantPoller(5))).FindCompanyPhone(context.Background(), "acme.io")
	require.True(t, ok)
	assert.Equal(t, "+1 555 0100", phone)
	assert.Equal(t, 2, fake.resultCalls)
}

func TestSnov_FindCompanyPhone_CompletedWithoutPhone(t *testing.T) {
	fake := &fakeSnov{startHash: "c1", companies: []*snov.CompanyResult{{Status: snov.StatusCompleted}}}
	phone, ok := NewSnov(fake, WithPoller(instantPoller(5))).FindCompanyPhone(context.Background(), "acme.io")
	assert.False(t, ok)
	assert.Empty(t, phone)
	assert.Equal(t, 1, fake.resultCalls)
}

func TestSnov_Disabled(t *testing.T) {
	s := NewSnov(nil)
	_, ok := s.FindIdentity(context.Background(), "acme.io")
	assert.False(t, ok)
	_, ok = s.FindCompanyPhone(context.Background(), "acme.io")
	assert.False(t, ok)
	_, ok = s.FindEmail(context.Background(), "Ada", "acme.io")
	assert.False(t, ok)
}
