package oauth2client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxTokenResponseSize bounds how much of a token endpoint response is read.
const maxTokenResponseSize = 1 << 20

const grantRefreshToken = "refresh_token"

// Authority executes a grant against a token endpoint.
// It holds no token state and is safe for concurrent use.
type Authority struct {
	cfg      Config
	settings settings
	metrics  *metrics
}

// NewAuthority creates an Authority for cfg.
//
// The configuration is validated immediately; a *ConfigError is returned
// for a missing or relative token URL, missing client credentials in header
// mode, or a password grant without username and password.
func NewAuthority(cfg Config, opts ...Option) (*Authority, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := newSettings(opts)
	return &Authority{
		cfg:      cfg.clone(),
		settings: s,
		metrics:  newMetrics(s.meterProvider),
	}, nil
}

// Config returns a copy of the configuration in use.
func (a *Authority) Config() Config {
	return a.cfg.clone()
}

// Fetch requests a new token using the configured grant.
//
// Returns:
//   - (*Token, nil) on success
//   - (nil, *ConfigError) when preconditions fail; no request is sent
//   - (nil, *ProtocolError) on a non-success status without OnError configured
//   - (nil, nil) when OnError handled the failure or ctx was cancelled
//   - (nil, err) wrapping the transport error otherwise
func (a *Authority) Fetch(ctx context.Context) (*Token, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", a.cfg.GrantType.String())
	if a.cfg.GrantType == GrantPassword {
		form.Set("username", a.cfg.Username)
		form.Set("password", a.cfg.Password)
	}

	return a.exchange(ctx, a.cfg.GrantType.String(), form)
}

// Refresh redeems refreshToken with the refresh_token grant. An empty
// refreshToken returns (nil, nil) without contacting the endpoint.
// Errors follow the same rules as Fetch.
func (a *Authority) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, nil
	}

	form := url.Values{}
	form.Set("grant_type", grantRefreshToken)
	form.Set("refresh_token", refreshToken)

	return a.exchange(ctx, grantRefreshToken, form)
}

// Renew replaces current. With Config.UseRefreshToken and a refresh token in
// current it redeems the refresh token, falling back to the configured grant
// if the endpoint rejects it. Otherwise it is equivalent to Fetch.
func (a *Authority) Renew(ctx context.Context, current *Token) (*Token, error) {
	if !a.cfg.UseRefreshToken || current == nil || current.RefreshToken == "" {
		return a.Fetch(ctx)
	}

	token, err := a.Refresh(ctx, current.RefreshToken)
	var pe *ProtocolError
	if errors.As(err, &pe) {
		a.settings.logf("oauth2: refresh token rejected with status %d, repeating %s grant", pe.StatusCode, a.cfg.GrantType)
		return a.Fetch(ctx)
	}
	return token, err
}

func (a *Authority) exchange(ctx context.Context, grant string, form url.Values) (*Token, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if scope := a.cfg.scope(); scope != "" {
		form.Set("scope", scope)
	}
	if a.cfg.CredentialTransport == CredentialsInForm {
		form.Set("client_id", a.cfg.ClientID)
		form.Set("client_secret", a.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("oauth2: failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if a.cfg.CredentialTransport == CredentialsInHeader {
		req.SetBasicAuth(a.cfg.ClientID, a.cfg.ClientSecret)
	}

	start := time.Now()
	resp, err := a.settings.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			a.metrics.recordRequest(ctx, grant, outcomeCanceled, time.Since(start))
			return nil, nil
		}
		a.metrics.recordRequest(ctx, grant, outcomeTransportError, time.Since(start))
		return nil, fmt.Errorf("oauth2: token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if ctx.Err() != nil {
		a.metrics.recordRequest(ctx, grant, outcomeCanceled, time.Since(start))
		return nil, nil
	}
	if err != nil {
		a.metrics.recordRequest(ctx, grant, outcomeTransportError, time.Since(start))
		return nil, fmt.Errorf("oauth2: failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return a.fail(ctx, grant, start, resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		a.metrics.recordRequest(ctx, grant, outcomeProtocolError, time.Since(start))
		return nil, fmt.Errorf("oauth2: failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return a.fail(ctx, grant, start, resp.StatusCode, string(body))
	}

	token := tr.token()
	a.metrics.recordRequest(ctx, grant, outcomeSuccess, time.Since(start))
	a.settings.logf("oauth2: obtained new access token (grant: %s, expires in: %s)", grant, token.ExpiresIn)

	return token, nil
}

// fail reports a token endpoint failure either through OnError or as a *ProtocolError.
func (a *Authority) fail(ctx context.Context, grant string, start time.Time, status int, body string) (*Token, error) {
	if a.cfg.OnError != nil {
		a.metrics.recordRequest(ctx, grant, outcomeAbsent, time.Since(start))
		a.settings.logf("oauth2: token endpoint returned status %d, reported to error handler", status)
		a.cfg.OnError(status, body)
		return nil, nil
	}
	a.metrics.recordRequest(ctx, grant, outcomeProtocolError, time.Since(start))
	return nil, &ProtocolError{StatusCode: status, Body: body}
}
