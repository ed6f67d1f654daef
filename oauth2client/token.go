package oauth2client

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Token is an access token issued by the token endpoint.
// A Token is never modified after it is returned; a refresh yields a new one.
type Token struct {
	AccessToken  string
	RefreshToken string
	TokenType    string

	// ExpiresIn is the lifetime declared by the server. It is informational
	// only; cached tokens are replaced when a request comes back 401.
	ExpiresIn time.Duration
}

// tokenResponse is the JSON document returned by the token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (r tokenResponse) token() *Token {
	return &Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		ExpiresIn:    time.Duration(r.ExpiresIn) * time.Second,
	}
}

// OAuth2 converts t to an *oauth2.Token. Expiry is left zero because the
// declared lifetime is not tracked; ExpiresIn carries it in seconds.
func (t *Token) OAuth2() *oauth2.Token {
	if t == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    int64(t.ExpiresIn / time.Second),
	}
}

// String describes the token without revealing the access token.
func (t *Token) String() string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Token{type=%q, expires_in=%s, refresh=%t}", t.TokenType, t.ExpiresIn, t.RefreshToken != "")
}
