package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "https with www and path", raw: "https://www.Foo.com/x", want: "foo.com"},
		{name: "no scheme", raw: "acme.io", want: "acme.io"},
		{name: "no scheme with www", raw: "www.acme.io/about", want: "acme.io"},
		{name: "http scheme", raw: "http://shop.acme.io", want: "shop.acme.io"},
		{name: "port dropped", raw: "https://acme.io:8443/", want: "acme.io"},
		{name: "uppercase scheme", raw: "HTTPS://WWW.ACME.IO", want: "acme.io"},
		{name: "only one www stripped", raw: "www.www.acme.io", want: "www.acme.io"},
		{name: "surrounding space", raw: "  acme.io  ", want: "acme.io"},
		{name: "trailing dot", raw: "acme.io.", want: "acme.io"},
		{name: "host starting with http", raw: "httpie.io", want: "httpie.io"},
		{name: "mixed case host starting with http", raw: "HTTPbin.org", want: "httpbin.org"},
		{name: "scheme-relative", raw: "//www.acme.io/x", want: "acme.io"},
		{name: "ftp scheme", raw: "ftp://files.acme.io", want: "files.acme.io"},
		{name: "url in query", raw: "acme.io/go?to=https://other.io", want: "acme.io"},
		{name: "custom scheme", raw: "sftp://www.acme.io:22/in", want: "acme.io"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractDomain(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractDomain_Idempotent(t *testing.T) {
	for _, raw := range []string{"https://www.Foo.com/x", "acme.io", "http://sub.example.co.uk:80/a?b=c"} {
		once, err := ExtractDomain(raw)
		require.NoError(t, err)
		twice, err := ExtractDomain(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "input %q", raw)
	}
}

func TestExtractDomain_Invalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "http://", "https:///path", "http://%zz"} {
		_, err := ExtractDomain(raw)
		require.Error(t, err, "input %q", raw)
		assert.True(t, errors.Is(err, ErrNoDomain), "input %q", raw)
	}
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("Ada Lovelace")
	assert.Equal(t, "Ada", first)
	assert.Equal(t, "Lovelace", last)

	first, last = SplitName("Ada King Lovelace")
	assert.Equal(t, "Ada", first)
	assert.Equal(t, "Lovelace", last)

	first, last = SplitName("Cher")
	assert.Equal(t, "Cher", first)
	assert.Empty(t, last)

	first, last = SplitName("  ")
	assert.Empty(t, first)
	assert.Empty(t, last)
}

func TestNameFromEmail(t *testing.T) {
	assert.Equal(t, "Info", NameFromEmail("info@ghost.io"))
	assert.Equal(t, "Info", NameFromEmail("INFO@ghost.io"))
	assert.Equal(t, "John.doe", NameFromEmail("john.doe@ghost.io"))
	assert.Equal(t, "Émile", NameFromEmail("émile@ghost.io"))
	assert.Empty(t, NameFromEmail("@ghost.io"))
	assert.Empty(t, NameFromEmail(""))
}
