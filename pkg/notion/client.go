// Package notion wraps the Notion API for the lead database export.
package notion

import (
	"context"
	"errors"
	"net/http"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// defaultRPS is Notion's documented average request rate per integration.
const defaultRPS = 3

// Client defines the Notion API operations used by the lead export.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

type databaseQuerier interface {
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

type pageCreator interface {
	Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// ClientOption configures the Notion client.
type ClientOption func(*notionClient)

// WithRateLimit overrides the default rate of 3 req/s. Zero disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *notionClient) {
		c.limiter = nil
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithThrottleRetries sets how many times a call answered with HTTP 429 is
// repeated after waiting for the limiter again.
func WithThrottleRetries(n int) ClientOption {
	return func(c *notionClient) {
		if n >= 0 {
			c.retries = n
		}
	}
}

type notionClient struct {
	db      databaseQuerier
	pages   pageCreator
	limiter *rate.Limiter
	retries int
}

// NewClient creates a Notion client for the given integration token.
func NewClient(token string, opts ...ClientOption) Client {
	inner := notionapi.NewClient(notionapi.Token(token))
	c := &notionClient{
		db:      inner.Database,
		pages:   inner.Page,
		limiter: rate.NewLimiter(defaultRPS, 1),
		retries: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *notionClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// call runs fn behind the limiter, repeating it while Notion reports throttling.
func (c *notionClient) call(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		if err := c.wait(ctx); err != nil {
			return eris.Wrap(err, "notion: rate limit")
		}
		err := fn()
		if err == nil || !throttled(err) || attempt >= c.retries {
			return err
		}
	}
}

func throttled(err error) bool {
	var apiErr *notionapi.Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests
}

func (c *notionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	var resp *notionapi.DatabaseQueryResponse
	err := c.call(ctx, func() error {
		var err error
		resp, err = c.db.Query(ctx, notionapi.DatabaseID(dbID), req)
		return err
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query database %s", dbID)
	}
	return resp, nil
}

func (c *notionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	var page *notionapi.Page
	err := c.call(ctx, func() error {
		var err error
		page, err = c.pages.Create(ctx, req)
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "notion: create page")
	}
	return page, nil
}
