// Package snov provides a client for the Snov.io domain search APIs.
//
// Snov searches are asynchronous: a start call returns a task hash and a
// result call reports the task status plus any data gathered so far. The
// client only performs single HTTP round trips; polling is the caller's job.
package snov

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.snov.io"

// DecisionMakerPositions are the positions sent with every prospect search.
var DecisionMakerPositions = []string{"Founder", "Co-Founder", "CEO"}

// Task statuses reported by result endpoints.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Client defines the Snov operations used by the waterfall.
type Client interface {
	StartProspectSearch(ctx context.Context, req ProspectSearchRequest) (string, error)
	ProspectResult(ctx context.Context, taskHash string) (*ProspectResult, error)
	StartCompanySearch(ctx context.Context, domain string) (string, error)
	CompanyResult(ctx context.Context, taskHash string) (*CompanyResult, error)
}

// ProspectSearchRequest is the body for POST /v2/domain-search/prospects/start.
type ProspectSearchRequest struct {
	Domain    string   `json:"domain"`
	Positions []string `json:"positions,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// Prospect is one person returned by a prospect search.
type Prospect struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
	Position  string `json:"position"`
}

// FullName joins first and last name, falling back to the single name field.
func (p Prospect) FullName() string {
	if full := strings.TrimSpace(p.FirstName + " " + p.LastName); full != "" {
		return full
	}
	return strings.TrimSpace(p.Name)
}

// ProspectResult is the state of a prospect search task.
type ProspectResult struct {
	Status    string
	Prospects []Prospect
}

// CompanyResult is the state of a company domain search task.
type CompanyResult struct {
	Status  string
	HQPhone string
}

// APIError is returned when Snov responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("snov: HTTP %d: %s", e.StatusCode, e.Body)
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

// WithClock overrides time.Now for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *httpClient) {
		c.now = now
	}
}

type httpClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	http         *http.Client
	limiter      *rate.Limiter
	now          func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time // zero means no known expiry
	group   singleflight.Group
}

// NewClient creates a Snov API client. The access token is fetched lazily
// and cached for the lifetime of the client.
func NewClient(clientID, clientSecret string, opts ...Option) Client {
	c := &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		http:         &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type startResponse struct {
	Meta struct {
		TaskHash string `json:"task_hash"`
	} `json:"meta"`
}

func (c *httpClient) StartProspectSearch(ctx context.Context, req ProspectSearchRequest) (string, error) {
	var out startResponse
	if err := c.doAuthed(ctx, http.MethodPost, "/v2/domain-search/prospects/start", req, &out); err != nil {
		return "", eris.Wrap(err, "snov: start prospect search")
	}
	return out.Meta.TaskHash, nil
}

func (c *httpClient) ProspectResult(ctx context.Context, taskHash string) (*ProspectResult, error) {
	var raw struct {
		Status    string          `json:"status"`
		Prospects []Prospect      `json:"prospects"`
		Data      json.RawMessage `json:"data"`
	}
	path := "/v2/domain-search/prospects/result/" + url.PathEscape(taskHash)
	if err := c.doAuthed(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, eris.Wrap(err, "snov: prospect result")
	}

	res := &ProspectResult{Status: raw.Status, Prospects: raw.Prospects}
	// Older responses carry the list under "data".
	if len(res.Prospects) == 0 && isJSONArray(raw.Data) {
		if err := json.Unmarshal(raw.Data, &res.Prospects); err != nil {
			return nil, eris.Wrap(err, "snov: prospect result: decode data")
		}
	}
	return res, nil
}

func (c *httpClient) StartCompanySearch(ctx context.Context, domain string) (string, error) {
	var out startResponse
	body := map[string]string{"domain": domain}
	if err := c.doAuthed(ctx, http.MethodPost, "/v2/domain-search/start", body, &out); err != nil {
		return "", eris.Wrap(err, "snov: start company search")
	}
	return out.Meta.TaskHash, nil
}

func (c *httpClient) CompanyResult(ctx context.Context, taskHash string) (*CompanyResult, error) {
	var raw struct {
		Status  string          `json:"status"`
		HQPhone string          `json:"hq_phone"`
		Data    json.RawMessage `json:"data"`
	}
	path := "/v2/domain-search/result/" + url.PathEscape(taskHash)
	if err := c.doAuthed(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, eris.Wrap(err, "snov: company result")
	}

	res := &CompanyResult{Status: raw.Status, HQPhone: raw.HQPhone}
	if isJSONObject(raw.Data) {
		var company struct {
			HQPhone string `json:"hq_phone"`
		}
		if err := json.Unmarshal(raw.Data, &company); err != nil {
			return nil, eris.Wrap(err, "snov: company result: decode data")
		}
		res.HQPhone = company.HQPhone
	}
	res.HQPhone = strings.TrimSpace(res.HQPhone)
	return res, nil
}

// doAuthed sends an authenticated request. A 401 or 403 drops the cached
// token, re-authenticates and retries exactly once.
func (c *httpClient) doAuthed(ctx context.Context, method, path string, in, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	err = c.do(ctx, method, path, token, in, out)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || (apiErr.StatusCode != http.StatusUnauthorized && apiErr.StatusCode != http.StatusForbidden) {
		return err
	}

	c.invalidate(token)
	token, err = c.accessToken(ctx)
	if err != nil {
		return eris.Wrap(err, "re-authenticate")
	}
	return c.do(ctx, method, path, token, in, out)
}

func (c *httpClient) do(ctx context.Context, method, path, token string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit")
		}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *httpClient) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}

func isJSONArray(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && b[0] == '['
}

func isJSONObject(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && b[0] == '{'
}
