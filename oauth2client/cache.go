package oauth2client

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/sync/semaphore"
)

// TokenFetcher obtains a new token. *Authority implements it.
type TokenFetcher interface {
	Fetch(ctx context.Context) (*Token, error)
}

// Renewer is implemented by fetchers that replace a held token differently
// from a first fetch, for example with the refresh_token grant.
type Renewer interface {
	Renew(ctx context.Context, current *Token) (*Token, error)
}

// TokenCache holds at most one token and serializes fetches so that only one
// token request is in flight at a time.
//
// Token and Refresh both run inside a critical section scoped to the cache.
// Callers that arrive while a fetch or refresh is running wait for it and see
// its result instead of sending their own request. Failed fetches are not
// cached, so the next caller tries again.
type TokenCache struct {
	fetcher TokenFetcher
	sem     *semaphore.Weighted

	mu    sync.Mutex // guards token for Cached and Clear
	token *Token

	settings settings
	metrics  *metrics
}

// NewTokenCache creates an empty cache backed by fetcher.
// Only WithLogger, WithLoggingEnabled and WithMeterProvider apply here.
func NewTokenCache(fetcher TokenFetcher, opts ...Option) *TokenCache {
	s := newSettings(opts)
	return &TokenCache{
		fetcher:  fetcher,
		sem:      semaphore.NewWeighted(1),
		settings: s,
		metrics:  newMetrics(s.meterProvider),
	}
}

// NewTokenCacheFromConfig is shorthand for NewAuthority followed by NewTokenCache.
func NewTokenCacheFromConfig(cfg Config, opts ...Option) (*TokenCache, error) {
	authority, err := NewAuthority(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return NewTokenCache(authority, opts...), nil
}

// Token returns the cached token, fetching one if the cache is empty.
//
// A nil token with a nil error means no token could be obtained: the error
// callback handled a token endpoint failure, or ctx was cancelled while
// waiting for the cache or the token endpoint.
func (c *TokenCache) Token(ctx context.Context) (*Token, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, nil
	}
	defer c.sem.Release(1)

	if token := c.Cached(); token != nil {
		return token, nil
	}

	token, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.set(token)
	return token, nil
}

// Refresh discards the cached token and obtains a new one, regardless of
// what is cached. The cache is left empty when no token is obtained.
func (c *TokenCache) Refresh(ctx context.Context) (*Token, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, nil
	}
	defer c.sem.Release(1)

	current := c.Cached()

	var (
		token *Token
		err   error
	)
	if r, ok := c.fetcher.(Renewer); ok {
		token, err = r.Renew(ctx, current)
	} else {
		token, err = c.fetcher.Fetch(ctx)
	}
	c.set(token)

	switch {
	case err != nil:
		c.metrics.recordRefresh(ctx, outcomeError)
		c.settings.logf("oauth2: token refresh failed: %v", err)
		return nil, err
	case token == nil:
		c.metrics.recordRefresh(ctx, outcomeAbsent)
		c.settings.logf("oauth2: token refresh produced no token")
	default:
		c.metrics.recordRefresh(ctx, outcomeSuccess)
		c.settings.logf("oauth2: refreshed access token")
	}
	return token, nil
}

// Cached returns the cached token without fetching. It never blocks on an
// in-flight fetch.
func (c *TokenCache) Cached() *Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Clear empties the cache; the next Token call fetches again.
func (c *TokenCache) Clear() {
	c.set(nil)
}

func (c *TokenCache) set(token *Token) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// TokenSource adapts the cache to oauth2.TokenSource. Token calls use ctx and
// return ErrNoToken when the fetch yields no token.
func (c *TokenCache) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &cacheTokenSource{cache: c, ctx: ctx}
}

type cacheTokenSource struct {
	cache *TokenCache
	ctx   context.Context
}

func (s *cacheTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.cache.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrNoToken
	}
	return token.OAuth2(), nil
}
