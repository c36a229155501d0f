package hunter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/email-finder", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "acme.io", q.Get("domain"))
		assert.Equal(t, "Ada", q.Get("first_name"))
		assert.Equal(t, "Lovelace", q.Get("last_name"))
		assert.Equal(t, "test-key", q.Get("api_key"))

		_, _ = w.Write([]byte(`{"data": {"first_name": "Ada", "last_name": "Lovelace", "email": "ada@acme.io", "score": 97,
			"verification": {"date": "2026-01-01", "status": "deliverable"}}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	data, err := c.FindEmail(context.Background(), EmailFinderRequest{Domain: "acme.io", FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, "ada@acme.io", data.Email)
	assert.Equal(t, 97, data.Score)
	assert.True(t, data.Deliverable())
}

func TestFindEmail_NotVerified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"email": "a.lovelace@acme.io", "score": 40, "verification": {"status": "risky"}}}`))
	}))
	defer srv.Close()

	data, err := NewClient("k", WithBaseURL(srv.URL)).FindEmail(context.Background(), EmailFinderRequest{Domain: "acme.io", FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "a.lovelace@acme.io", data.Email)
	assert.False(t, data.Deliverable())
}

func TestFindEmail_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors": [{"id": "not_found"}]}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).FindEmail(context.Background(), EmailFinderRequest{Domain: "acme.io"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hunter: find email")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestDomainSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/domain-search", r.URL.Path)
		assert.Equal(t, "ghost.io", r.URL.Query().Get("domain"))
		assert.Equal(t, "k", r.URL.Query().Get("api_key"))

		_, _ = w.Write([]byte(`{"data": {"domain": "ghost.io", "organization": "Ghost", "emails": [
			{"value": "info@ghost.io", "type": "generic", "confidence": 91},
			{"value": "jo@ghost.io", "type": "personal", "first_name": "Jo", "last_name": "March", "position": "Founder"}
		]}}`))
	}))
	defer srv.Close()

	data, err := NewClient("k", WithBaseURL(srv.URL)).DomainSearch(context.Background(), "ghost.io")
	require.NoError(t, err)
	assert.Equal(t, "Ghost", data.Organization)
	require.Len(t, data.Emails, 2)
	assert.Equal(t, "info@ghost.io", data.Emails[0].Value)
	assert.Empty(t, data.Emails[0].FirstName)
	assert.Equal(t, "March", data.Emails[1].LastName)
}

func TestDomainSearch_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).DomainSearch(context.Background(), "ghost.io")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}
