package sources

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultRedditTokenURL   = "https://www.reddit.com/api/v1/access_token"
	defaultTokenLifetime    = time.Hour
	tokenExpirySafetyMargin = 60 * time.Second
)

type RedditCredentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

func (c RedditCredentials) complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Username != "" && c.Password != ""
}

// tokenCache holds one bearer token obtained through the password grant and
// refreshes it once it is within the safety margin of expiring. Two runs racing
// on an expired token may both refresh; the later one wins.
type tokenCache struct {
	conf       *oauth2.Config
	creds      RedditCredentials
	httpClient *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newTokenCache(creds RedditCredentials, tokenURL string, httpClient *http.Client, userAgent string) *tokenCache {
	client := &http.Client{
		Timeout:   httpClient.Timeout,
		Transport: &userAgentTransport{base: httpClient.Transport, userAgent: userAgent},
	}

	return &tokenCache{
		conf: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		creds:      creds,
		httpClient: client,
	}
}

func (c *tokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.expiresAt) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.conf.PasswordCredentialsToken(ctx, c.creds.Username, c.creds.Password)
	if err != nil {
		return "", fmt.Errorf("failed to fetch reddit token: %w", err)
	}

	lifetime := defaultTokenLifetime
	if !tok.Expiry.IsZero() {
		lifetime = time.Until(tok.Expiry)
	}
	lifetime = max(0, lifetime-tokenExpirySafetyMargin)

	c.mu.Lock()
	c.token = tok.AccessToken
	c.expiresAt = time.Now().Add(lifetime)
	c.mu.Unlock()

	return tok.AccessToken, nil
}
