// Package hunter provides a client for the Hunter.io email finder and domain search APIs.
package hunter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.hunter.io"

// VerificationDeliverable is the verification status Hunter reports for a
// mailbox it confirmed.
const VerificationDeliverable = "deliverable"

// Client defines the Hunter operations used by the waterfall.
type Client interface {
	FindEmail(ctx context.Context, req EmailFinderRequest) (*EmailFinderData, error)
	DomainSearch(ctx context.Context, domain string) (*DomainSearchData, error)
}

// EmailFinderRequest holds the query for GET /v2/email-finder.
type EmailFinderRequest struct {
	Domain    string
	FirstName string
	LastName  string
}

// EmailFinderData is the data object of an email-finder response.
type EmailFinderData struct {
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	Email        string       `json:"email"`
	Score        int          `json:"score"`
	Domain       string       `json:"domain"`
	Position     string       `json:"position"`
	Verification Verification `json:"verification"`
}

// Verification is Hunter's own mailbox check.
type Verification struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

// Deliverable reports whether Hunter verified the address.
func (d *EmailFinderData) Deliverable() bool {
	return d.Verification.Status == VerificationDeliverable
}

// DomainSearchData is the data object of a domain-search response.
type DomainSearchData struct {
	Domain       string        `json:"domain"`
	Organization string        `json:"organization"`
	Emails       []DomainEmail `json:"emails"`
}

// DomainEmail is one address found for a domain.
type DomainEmail struct {
	Value        string       `json:"value"`
	Type         string       `json:"type"`
	Confidence   int          `json:"confidence"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	Position     string       `json:"position"`
	Verification Verification `json:"verification"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// APIError is returned when Hunter responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hunter: HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit throttles requests to rps per second. Zero disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Hunter API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) FindEmail(ctx context.Context, req EmailFinderRequest) (*EmailFinderData, error) {
	q := url.Values{}
	q.Set("domain", req.Domain)
	q.Set("first_name", req.FirstName)
	q.Set("last_name", req.LastName)

	var out envelope[EmailFinderData]
	if err := c.get(ctx, "/v2/email-finder", q, &out); err != nil {
		return nil, eris.Wrap(err, "hunter: find email")
	}
	return &out.Data, nil
}

func (c *httpClient) DomainSearch(ctx context.Context, domain string) (*DomainSearchData, error) {
	q := url.Values{}
	q.Set("domain", domain)

	var out envelope[DomainSearchData]
	if err := c.get(ctx, "/v2/domain-search", q, &out); err != nil {
		return nil, eris.Wrap(err, "hunter: domain search")
	}
	return &out.Data, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit")
		}
	}

	q.Set("api_key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
