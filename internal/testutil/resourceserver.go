package testutil

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ResourceServer is a protected API that accepts tokens issued by a TokenServer.
//
// Routes:
//   - /api/authorize: 200 for a valid bearer token, 401 otherwise
//   - /api/unauthorized: 403 for a valid token, since no token carries the admin role
//   - /api/always-unauthorized: 401 regardless of the token
//   - anything else: 404
//
// Tokens issued before the last TokenServer.Rotate are rejected with 401.
type ResourceServer struct {
	URL string

	tokens *TokenServer
	jwks   *keyfunc.JWKS

	mu             sync.Mutex
	authorizations []string
}

// NewResourceServer starts a ResourceServer trusting tokens. It is closed via tb.Cleanup.
func NewResourceServer(tb testing.TB, tokens *TokenServer) *ResourceServer {
	tb.Helper()

	jwks, err := keyfunc.Get(tokens.JWKSURL(), keyfunc.Options{
		Client:         &http.Client{Timeout: 5 * time.Second},
		RefreshTimeout: 5 * time.Second,
	})
	if err != nil {
		tb.Fatalf("failed to load JWKS: %v", err)
	}
	tb.Cleanup(jwks.EndBackground)

	s := &ResourceServer{tokens: tokens, jwks: jwks}
	server := NewLocalHTTPServer(tb, http.HandlerFunc(s.handle))
	s.URL = server.URL

	return s
}

// Authorizations returns the Authorization header of every request received, in order.
func (s *ResourceServer) Authorizations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.authorizations))
	copy(out, s.authorizations)
	return out
}

func (s *ResourceServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.authorizations = append(s.authorizations, r.Header.Get("Authorization"))
	s.mu.Unlock()

	switch r.URL.Path {
	case "/api/authorize", "/api/unauthorized":
	case "/api/always-unauthorized":
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		w.WriteHeader(http.StatusUnauthorized)
		return
	default:
		http.NotFound(w, r)
		return
	}

	claims, err := s.validate(r.Header.Get("Authorization"))
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	if r.URL.Path == "/api/unauthorized" {
		if role, _ := claims["role"].(string); role != "admin" {
			http.Error(w, "admin role required", http.StatusForbidden)
			return
		}
	}

	sub, _ := claims.GetSubject()
	_, _ = fmt.Fprintf(w, "ok:%s", sub) // Error intentionally ignored in test helper
}

func (s *ResourceServer) validate(header string) (jwt.MapClaims, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, errors.New("missing bearer token")
	}

	token, err := jwt.Parse(raw, s.jwks.Keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		jwt.WithIssuer(s.tokens.Issuer),
		jwt.WithAudience(Audience),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	if gen, _ := claims["gen"].(float64); int(gen) != s.tokens.Generation() {
		return nil, errors.New("token has been revoked")
	}
	return claims, nil
}
