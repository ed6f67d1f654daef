package httpclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/AmmannChristian/go-oauth2handler/oauth2client"
)

// maxDrainSize bounds how much of a discarded 401 body is read so the
// connection can be reused.
const maxDrainSize = 64 << 10

var errNilTokenCache = errors.New("httpclient: TokenCache is nil")

// Transport is an http.RoundTripper that adds OAuth2 Bearer tokens to
// outgoing requests and retries once after a 401.
//
// For each request without an Authorization header it takes the token from
// TokenCache (fetching one if the cache is empty), sends the request through
// Base and, if the response is 401 Unauthorized, refreshes the token and
// sends the request a second time. The second response is returned as-is.
// Requests that already carry an Authorization header are forwarded
// untouched.
type Transport struct {
	// Base is the underlying HTTP transport. If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	// TokenCache provides and refreshes OAuth2 access tokens.
	TokenCache *oauth2client.TokenCache
}

// NewTransport creates a new Transport with the given token cache.
// The base transport defaults to http.DefaultTransport if not specified.
func NewTransport(cache *oauth2client.TokenCache, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &Transport{
		Base:       base,
		TokenCache: cache,
	}
}

// RoundTrip implements http.RoundTripper interface.
//
// Token errors (*oauth2client.ConfigError, *oauth2client.ProtocolError or a
// wrapped transport error from the token endpoint) abort the request. When no
// token is obtained without an error, the request is sent without one.
// The caller's request is never modified.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base()

	if req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}

	if t.TokenCache == nil {
		closeRequestBody(req)
		return nil, errNilTokenCache
	}

	ctx := req.Context()

	token, err := t.TokenCache.Token(ctx)
	if err != nil {
		closeRequestBody(req)
		return nil, fmt.Errorf("httpclient: failed to get token: %w", err)
	}

	resp, err := base.RoundTrip(withBearer(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	token, err = t.TokenCache.Refresh(ctx)
	if err != nil {
		drainAndClose(resp)
		return nil, fmt.Errorf("httpclient: failed to refresh token: %w", err)
	}
	if token == nil {
		return resp, nil
	}

	retry, ok := rewind(req)
	if !ok {
		return resp, nil
	}

	drainAndClose(resp)
	return base.RoundTrip(withBearer(retry, token))
}

func (t *Transport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

// withBearer returns a clone of req carrying token. A nil token returns req itself.
func withBearer(req *http.Request, token *oauth2client.Token) *http.Request {
	if token == nil {
		return req
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token.AccessToken)
	return clone
}

// rewind returns a copy of req whose body can be sent again. It reports false
// when the body has already been consumed and cannot be recreated.
func rewind(req *http.Request) (*http.Request, bool) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, true
}

func drainAndClose(resp *http.Response) {
	_, _ = io.CopyN(io.Discard, resp.Body, maxDrainSize)
	_ = resp.Body.Close()
}

func closeRequestBody(req *http.Request) {
	if req != nil && req.Body != nil {
		_ = req.Body.Close()
	}
}
