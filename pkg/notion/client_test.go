package notion

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *MockClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func TestMockClientSatisfiesInterface(t *testing.T) {
	t.Parallel()
	var _ Client = (*MockClient)(nil)
}

// scriptedPages returns errs in order, then a page.
type scriptedPages struct {
	errs  []error
	calls int
}

func (s *scriptedPages) Create(context.Context, *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &notionapi.Page{ID: "page-1"}, nil
}

type failingQuery struct{ err error }

func (f failingQuery) Query(context.Context, notionapi.DatabaseID, *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return nil, f.err
}

func newTestClient(opts ...ClientOption) *notionClient {
	opts = append([]ClientOption{WithRateLimit(0)}, opts...)
	return NewClient("test-token", opts...).(*notionClient)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("test-token").(*notionClient)
	require.NotNil(t, c.limiter)
	assert.InDelta(t, defaultRPS, float64(c.limiter.Limit()), 0.001)
	assert.Equal(t, 2, c.retries)
}

func TestWithRateLimit(t *testing.T) {
	c := NewClient("test-token", WithRateLimit(10)).(*notionClient)
	require.NotNil(t, c.limiter)
	assert.InDelta(t, 10, float64(c.limiter.Limit()), 0.001)

	c = newTestClient()
	assert.Nil(t, c.limiter)
	assert.NoError(t, c.wait(context.Background()))
}

func TestWaitHonoursCancelledContext(t *testing.T) {
	c := NewClient("test-token", WithRateLimit(0.001)).(*notionClient)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "notion: rate limit")
}

func TestCreatePage_RetriesThrottled(t *testing.T) {
	pages := &scriptedPages{errs: []error{
		&notionapi.Error{Status: http.StatusTooManyRequests},
		&notionapi.Error{Status: http.StatusTooManyRequests},
	}}
	c := newTestClient()
	c.pages = pages

	page, err := c.CreatePage(context.Background(), &notionapi.PageCreateRequest{})
	require.NoError(t, err)
	assert.Equal(t, notionapi.ObjectID("page-1"), page.ID)
	assert.Equal(t, 3, pages.calls)
}

func TestCreatePage_GivesUpAfterRetries(t *testing.T) {
	pages := &scriptedPages{errs: []error{
		&notionapi.Error{Status: http.StatusTooManyRequests},
		&notionapi.Error{Status: http.StatusTooManyRequests},
	}}
	c := newTestClient(WithThrottleRetries(1))
	c.pages = pages

	_, err := c.CreatePage(context.Background(), &notionapi.PageCreateRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: create page")
	assert.Equal(t, 2, pages.calls)
}

func TestCreatePage_OtherErrorsNotRetried(t *testing.T) {
	pages := &scriptedPages{errs: []error{&notionapi.Error{Status: http.StatusBadRequest}}}
	c := newTestClient()
	c.pages = pages

	_, err := c.CreatePage(context.Background(), &notionapi.PageCreateRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, pages.calls)
}

func TestQueryDatabase_WrapsError(t *testing.T) {
	c := newTestClient()
	c.db = failingQuery{err: errors.New("boom")}

	_, err := c.QueryDatabase(context.Background(), "db-1", &notionapi.DatabaseQueryRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: query database db-1")
}
