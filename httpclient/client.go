package httpclient

import (
	"context"
	"net/http"

	"github.com/AmmannChristian/go-oauth2handler/oauth2client"
)

// Client is an http.Client whose requests are authorized by a Transport.
// It also exposes the underlying token cache for callers that need the
// token itself.
type Client struct {
	*http.Client

	cache *oauth2client.TokenCache
}

// NewClient creates a Client for cfg. base carries both the token endpoint
// requests and the relayed requests; nil selects http.DefaultTransport.
// opts are applied after base, so oauth2client.WithTransport or
// WithHTTPClient can route token requests elsewhere.
func NewClient(cfg oauth2client.Config, base http.RoundTripper, opts ...oauth2client.Option) (*Client, error) {
	if base == nil {
		base = http.DefaultTransport
	}

	opts = append([]oauth2client.Option{oauth2client.WithTransport(base)}, opts...)
	cache, err := oauth2client.NewTokenCacheFromConfig(cfg, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		Client: &http.Client{Transport: NewTransport(cache, base)},
		cache:  cache,
	}, nil
}

// TokenCache returns the cache backing the client.
func (c *Client) TokenCache() *oauth2client.TokenCache {
	return c.cache
}

// Token returns the cached token, fetching one if needed.
func (c *Client) Token(ctx context.Context) (*oauth2client.Token, error) {
	return c.cache.Token(ctx)
}

// RefreshToken replaces the cached token with a newly fetched one.
func (c *Client) RefreshToken(ctx context.Context) (*oauth2client.Token, error) {
	return c.cache.Refresh(ctx)
}
