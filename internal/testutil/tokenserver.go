package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials registered with every TokenServer.
const (
	ClientID     = "MyId"
	ClientSecret = "MySecret"
	Username     = "MyUsername"
	Password     = "MyPassword"

	// Audience is the "aud" claim of issued access tokens.
	Audience = "api"

	// DefaultExpiresIn is the expires_in value returned unless overridden.
	DefaultExpiresIn = 3600
)

// TokenRequest is a recorded request to the token endpoint.
type TokenRequest struct {
	Form   url.Values
	Header http.Header
}

// TokenServer is an in-process OAuth2 token endpoint.
//
// It serves POST /connect/token for the client_credentials, password and
// refresh_token grants, and GET /jwks with the signing key. Client
// credentials are accepted either as HTTP Basic auth or as form fields.
// Bad credentials are answered with 400 {"error":"invalid_client"}.
type TokenServer struct {
	URL     string
	Issuer  string
	KeyPair *TestKeyPair

	mu            sync.Mutex
	expiresIn     int
	requests      []TokenRequest
	generation    int
	issued        int
	refreshTokens map[string]string
	issueRefresh  bool
	gate          chan struct{}
	started       chan struct{}
}

// NewTokenServer starts a TokenServer on 127.0.0.1. It is closed via tb.Cleanup.
func NewTokenServer(tb testing.TB) *TokenServer {
	tb.Helper()

	s := &TokenServer{
		KeyPair:       GenerateTestKeyPair(tb),
		expiresIn:     DefaultExpiresIn,
		refreshTokens: make(map[string]string),
		started:       make(chan struct{}, 128),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", s.handleToken)
	mux.HandleFunc("/jwks", s.handleJWKS)

	server := NewLocalHTTPServer(tb, mux)
	s.URL = server.URL
	s.Issuer = server.URL

	return s
}

// TokenURL returns the absolute token endpoint URL.
func (s *TokenServer) TokenURL() string {
	return s.URL + "/connect/token"
}

// JWKSURL returns the absolute JWKS URL.
func (s *TokenServer) JWKSURL() string {
	return s.URL + "/jwks"
}

// SetExpiresIn changes the expires_in value of subsequent responses.
func (s *TokenServer) SetExpiresIn(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresIn = seconds
}

// IssueRefreshTokens controls whether client_credentials responses carry a
// refresh token. Password grant responses always do.
func (s *TokenServer) IssueRefreshTokens(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issueRefresh = enabled
}

// Rotate invalidates every access token issued so far. Resource servers
// answer 401 for them afterwards.
func (s *TokenServer) Rotate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// Generation returns the current token generation.
func (s *TokenServer) Generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Hold makes subsequent token requests block until release is called.
// Each blocked request is announced on Started.
func (s *TokenServer) Hold() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.gate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Started receives a value whenever a token request starts.
func (s *TokenServer) Started() <-chan struct{} {
	return s.started
}

// Requests returns a copy of the recorded token requests.
func (s *TokenServer) Requests() []TokenRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TokenRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns the number of token requests received.
func (s *TokenServer) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *TokenServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, TokenRequest{Form: r.PostForm, Header: r.Header.Clone()})
	gate := s.gate
	s.mu.Unlock()

	select {
	case s.started <- struct{}{}:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		clientID = r.PostForm.Get("client_id")
		clientSecret = r.PostForm.Get("client_secret")
	}
	if clientID != ClientID || clientSecret != ClientSecret {
		writeOAuthError(w, http.StatusBadRequest, "invalid_client")
		return
	}

	grant := r.PostForm.Get("grant_type")
	subject := clientID
	withRefresh := false

	switch grant {
	case "client_credentials":
		s.mu.Lock()
		withRefresh = s.issueRefresh
		s.mu.Unlock()
	case "password":
		if r.PostForm.Get("username") != Username || r.PostForm.Get("password") != Password {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
			return
		}
		subject = Username
		withRefresh = true
	case "refresh_token":
		s.mu.Lock()
		owner, found := s.refreshTokens[r.PostForm.Get("refresh_token")]
		delete(s.refreshTokens, r.PostForm.Get("refresh_token"))
		s.mu.Unlock()
		if !found {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
			return
		}
		subject = owner
		withRefresh = true
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type")
		return
	}

	body, err := s.issue(subject, r.PostForm.Get("scope"), withRefresh)
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(body) // Error intentionally ignored in test helper
}

func (s *TokenServer) issue(subject, scope string, withRefresh bool) (map[string]interface{}, error) {
	s.mu.Lock()
	s.issued++
	serial := s.issued
	generation := s.generation
	expiresIn := s.expiresIn
	s.mu.Unlock()

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": s.Issuer,
		"aud": []string{Audience},
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
		"jti": fmt.Sprintf("token-%d", serial),
		"gen": generation,
	}
	if scope != "" {
		claims["scope"] = scope
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.KeyPair.KeyID
	accessToken, err := token.SignedString(s.KeyPair.PrivateKey)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
	}
	if scope != "" {
		body["scope"] = scope
	}
	if withRefresh {
		refreshToken := fmt.Sprintf("refresh-%d", serial)
		s.mu.Lock()
		s.refreshTokens[refreshToken] = subject
		s.mu.Unlock()
		body["refresh_token"] = refreshToken
	}
	return body, nil
}

func (s *TokenServer) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.KeyPair.JWKS()) // Error intentionally ignored in test helper
}

func writeOAuthError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code}) // Error intentionally ignored in test helper
}
