package provider

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-enricher/internal/poll"
)

type stubProvider struct {
	Unsupported
	name string
}

func (s *stubProvider) Name() string { return s.name }

type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) ObserveProviderCall(provider, operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, provider+"/"+operation+"/"+outcome)
}

func (r *callRecorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func instantPoller(attempts int) *poll.Poller {
	return poll.New(
		poll.WithAttempts(attempts),
		poll.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	assert.NotNil(t, r)
	assert.Empty(t, r.List())
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry(&stubProvider{name: "apollo"})

	got := r.Get("apollo")
	require.NotNil(t, got)
	assert.Equal(t, "apollo", got.Name())
	assert.Nil(t, r.Get("nonexistent"))
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry(&stubProvider{name: "snov"}, &stubProvider{name: "apollo"})
	assert.Equal(t, []string{"apollo", "snov"}, r.List())
}

func TestRegistry_Register_Overwrites(t *testing.T) {
	p1 := &stubProvider{name: "hunter"}
	p2 := &stubProvider{name: "hunter"}
	r := NewRegistry(p1, p2)

	assert.Same(t, p2, r.Get("hunter"))
	assert.Len(t, r.List(), 1)
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry(&stubProvider{name: "apollo"}, &stubProvider{name: "snov"}, &stubProvider{name: "hunter"})

	ps, err := r.Resolve([]string{"snov", "apollo"})
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "snov", ps[0].Name())
	assert.Equal(t, "apollo", ps[1].Name())

	ps, err = r.Resolve(nil)
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestRegistry_Resolve_Unknown(t *testing.T) {
	r := NewRegistry(&stubProvider{name: "apollo"})
	_, err := r.Resolve([]string{"apollo", "clearbit"})
	require.ErrorIs(t, err, ErrUnknownProvider)
	assert.Contains(t, err.Error(), "clearbit")
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(&stubProvider{name: string(rune('a' + i))})
		}()
		go func() {
			defer wg.Done()
			_ = r.List()
		}()
	}
	wg.Wait()
	assert.Len(t, r.List(), 10)
}

func TestUnsupported(t *testing.T) {
	ctx := context.Background()
	var u Unsupported

	name, ok := u.FindIdentity(ctx, "acme.io")
	assert.False(t, ok)
	assert.Empty(t, name)

	email, ok := u.FindEmail(ctx, "Ada Lovelace", "acme.io")
	assert.False(t, ok)
	assert.Equal(t, Email{}, email)

	name, email, ok = u.FindAnyContact(ctx, "acme.io")
	assert.False(t, ok)
	assert.Empty(t, name)
	assert.Empty(t, email.Address)

	phone, ok := u.FindCompanyPhone(ctx, "acme.io")
	assert.False(t, ok)
	assert.Empty(t, phone)
}

func TestAdaptersImplementProvider(t *testing.T) {
	var _ Provider = NewApollo(nil)
	var _ Provider = NewHunter(nil)
	var _ Provider = NewSnov(nil)
}
