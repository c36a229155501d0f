package model

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrNoDomain is returned when no hostname can be derived from a website value.
var ErrNoDomain = eris.New("model: no domain")

// ExtractDomain normalizes a raw website reference into a bare lowercase
// hostname. Any scheme is accepted; values without one are treated as http
// URLs. One leading "www." label is removed.
func ExtractDomain(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoDomain
	}
	switch {
	case strings.HasPrefix(raw, "//"):
		raw = "http:" + raw
	case !hasScheme(raw):
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", eris.Wrapf(ErrNoDomain, "parse %q", raw)
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", ErrNoDomain
	}
	return host, nil
}

func hasScheme(raw string) bool {
	i := strings.Index(raw, "://")
	return i > 0 && !strings.ContainsAny(raw[:i], "/?#")
}

// SplitName splits a display name into its first and last tokens. Middle
// names are dropped; a single-token name has an empty last name.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[len(parts)-1]
	}
}

var lowerCaser = cases.Lower(language.Und)

// NameFromEmail derives a display name from an address' local part,
// e.g. "INFO@ghost.io" -> "Info".
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if local == "" {
		return ""
	}
	local = lowerCaser.String(local)
	r, size := utf8.DecodeRuneInString(local)
	return string(unicode.ToUpper(r)) + local[size:]
}
