package snov

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNoToken is returned when the token endpoint answers without an access token.
var ErrNoToken = eris.New("snov: no access token in response")

// expiryMargin renews a token slightly before the server would reject it.
const expiryMargin = 30 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns the cached token or fetches a new one. Concurrent
// callers share a single in-flight fetch.
func (c *httpClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && (c.expires.IsZero() || c.now().Before(c.expires)) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("token", func() (any, error) {
		return c.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// invalidate drops the cached token if it is still the one that was rejected.
func (c *httpClient) invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.token = ""
		c.expires = time.Time{}
	}
}

func (c *httpClient) fetchToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", eris.New("snov: missing client credentials")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "snov: rate limit")
		}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "snov: create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok tokenResponse
	if err := c.send(req, &tok); err != nil {
		return "", eris.Wrap(err, "snov: fetch token")
	}
	if tok.AccessToken == "" {
		return "", ErrNoToken
	}

	c.mu.Lock()
	c.token = tok.AccessToken
	c.expires = time.Time{}
	if tok.ExpiresIn > 0 {
		c.expires = c.now().Add(time.Duration(tok.ExpiresIn)*time.Second - expiryMargin)
	}
	c.mu.Unlock()

	return tok.AccessToken, nil
}
