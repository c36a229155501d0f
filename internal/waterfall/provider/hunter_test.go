package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/contact-enricher/pkg/hunter"
)

type fakeHunter struct {
	finder     *hunter.EmailFinderData
	finderErr  error
	search     *hunter.DomainSearchData
	searchErr  error
	lastFinder hunter.EmailFinderRequest
	calls      int
}

func (f *fakeHunter) FindEmail(_ context.Context, req hunter.EmailFinderRequest) (*hunter.EmailFinderData, error) {
	f.calls++
	f.lastFinder = req
	if f.finderErr != nil {
		return nil, f.finderErr
	}
	return f.finder, nil
}

func (f *fakeHunter) DomainSearch(_ context.Context, _ string) (*hunter.DomainSearchData, error) {
	f.calls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.search, nil
}

func TestHunter_FindEmail(t *testing.T) {
	tests := []struct {
		name      string
		finder    *hunter.EmailFinderData
		err       error
		wantEmail Email
		wantOK    bool
	}{
		{
			name:      "deliverable",
			finder:    &hunter.EmailFinderData{Email: "ada@acme.io", Verification: hunter.Verification{Status: "deliverable"}},
			wantEmail: Email{Address: "ada@acme.io", Verified: true},
			wantOK:    true,
		},
		{
			name:      "best guess",
			finder:    &hunter.EmailFinderData{Email: "ada@acme.io", Verification: hunter.Verification{Status: "risky"}},
			wantEmail: Email{Address: "ada@acme.io"},
			wantOK:    true,
		},
		{
			name:   "no email",
			finder: &hunter.EmailFinderData{},
		},
		{
			name: "error",
			err:  &hunter.APIError{StatusCode: 404},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeHunter{finder: tt.finder, finderErr: tt.err}
			h := NewHunter(fake)

			email, ok := h.FindEmail(context.Background(), "Ada Byron Lovelace", "acme.io")
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantEmail, email)
			}
			assert.Equal(t, hunter.EmailFinderRequest{Domain: "acme.io", FirstName: "Ada", LastName: "Lovelace"}, fake.lastFinder)
		})
	}
}

func TestHunter_FindEmail_SingleToken(t *testing.T) {
	fake := &fakeHunter{finder: &hunter.EmailFinderData{Email: "cher@acme.io"}}
	email, ok := NewHunter(fake).FindEmail(context.Background(), "Cher", "acme.io")
	assert.True(t, ok)
	assert.Equal(t, "cher@acme.io", email.Address)
	assert.Equal(t, "", fake.lastFinder.LastName)
}

func TestHunter_FindEmail_NoName(t *testing.T) {
	fake := &fakeHunter{}
	_, ok := NewHunter(fake).FindEmail(context.Background(), "  ", "acme.io")
	assert.False(t, ok)
	assert.Zero(t, fake.calls)
}

func TestHunter_FindAnyContact(t *testing.T) {
	tests := []struct {
		name      string
		emails    []hunter.DomainEmail
		wantName  string
		wantEmail string
		wantOK    bool
	}{
		{
			name:      "named entry",
			emails:    []hunter.DomainEmail{{Value: "jo@ghost.io", FirstName: "Jo", LastName: "March"}},
			wantName:  "Jo March",
			wantEmail: "jo@ghost.io",
			wantOK:    true,
		},
		{
			name:      "email only derives name",
			emails:    []hunter.DomainEmail{{Value: "info@ghost.io"}},
			wantName:  "Info",
			wantEmail: "info@ghost.io",
			wantOK:    true,
		},
		{
			name: "first usable entry wins",
			emails: []hunter.DomainEmail{
				{FirstName: "No", LastName: "Address"},
				{Value: "SALES@ghost.io", FirstName: "Pat"},
				{Value: "jo@ghost.io", FirstName: "Jo", LastName: "March"},
			},
			wantName:  "Sales",
			wantEmail: "SALES@ghost.io",
			wantOK:    true,
		},
		{
			name: "no emails",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeHunter{search: &hunter.DomainSearchData{Domain: "ghost.io", Emails: tt.emails}}
			name, email, ok := NewHunter(fake).FindAnyContact(context.Background(), "ghost.io")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantEmail, email.Address)
		})
	}
}

func TestHunter_FindAnyContact_Error(t *testing.T) {
	rec := &callRecorder{}
	fake := &fakeHunter{searchErr: errors.New("connection refused")}
	_, _, ok := NewHunter(fake, WithRecorder(rec)).FindAnyContact(context.Background(), "ghost.io")
	assert.False(t, ok)
	assert.Equal(t, []string{"hunter/any_contact/error"}, rec.Calls())
}

func TestHunter_Disabled(t *testing.T) {
	h := NewHunter(nil)
	_, ok := h.FindEmail(context.Background(), "Ada Lovelace", "acme.io")
	assert.False(t, ok)
	_, _, ok = h.FindAnyContact(context.Background(), "acme.io")
	assert.False(t, ok)
}

func TestHunter_NotFoundAnswersKeepProviderAvailable(t *testing.T) {
	fake := &fakeHunter{finderErr: &hunter.APIError{StatusCode: 404}}
	h := NewHunter(fake)

	for i := 0; i < 5; i++ {
		_, ok := h.FindEmail(context.Background(), "Ada Lovelace", "acme.io")
		assert.False(t, ok)
	}

	fake.finderErr = nil
	fake.finder = &hunter.EmailFinderData{Email: "grace@hopper.io", Verification: hunter.Verification{Status: "deliverable"}}
	email, ok := h.FindEmail(context.Background(), "Grace Hopper", "hopper.io")
	assert.True(t, ok)
	assert.Equal(t, "grace@hopper.io", email.Address)
	assert.Equal(t, 6, fake.calls)
}
