package oauth2client

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// GrantType selects the OAuth2 grant used to obtain tokens.
type GrantType int

const (
	// GrantClientCredentials is the client_credentials grant (RFC 6749 section 4.4).
	GrantClientCredentials GrantType = iota
	// GrantPassword is the resource owner password credentials grant (RFC 6749 section 4.3).
	GrantPassword
)

// String returns the grant_type wire value.
func (g GrantType) String() string {
	switch g {
	case GrantClientCredentials:
		return "client_credentials"
	case GrantPassword:
		return "password"
	default:
		return fmt.Sprintf("GrantType(%d)", int(g))
	}
}

// UnmarshalText accepts the grant_type wire value. It lets GrantType be
// populated from environment variables.
func (g *GrantType) UnmarshalText(text []byte) error {
	parsed, err := ParseGrantType(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// ParseGrantType parses "client_credentials" or "password".
func ParseGrantType(s string) (GrantType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "client_credentials":
		return GrantClientCredentials, nil
	case "password":
		return GrantPassword, nil
	default:
		return 0, configError("GrantType", fmt.Sprintf("%q is not supported", s))
	}
}

// CredentialTransport selects how the client id and secret reach the token endpoint.
type CredentialTransport int

const (
	// CredentialsInHeader sends "Authorization: Basic base64(id:secret)".
	CredentialsInHeader CredentialTransport = iota
	// CredentialsInForm sends client_id and client_secret as form fields.
	CredentialsInForm
)

func (c CredentialTransport) String() string {
	switch c {
	case CredentialsInHeader:
		return "header"
	case CredentialsInForm:
		return "form"
	default:
		return fmt.Sprintf("CredentialTransport(%d)", int(c))
	}
}

// UnmarshalText accepts "header" or "form".
func (c *CredentialTransport) UnmarshalText(text []byte) error {
	parsed, err := ParseCredentialTransport(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCredentialTransport parses "header" (also "basic") or "form".
func ParseCredentialTransport(s string) (CredentialTransport, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "header", "basic":
		return CredentialsInHeader, nil
	case "form", "body":
		return CredentialsInForm, nil
	default:
		return 0, configError("CredentialTransport", fmt.Sprintf("%q is not supported", s))
	}
}

// ErrorHandler receives the status code and raw body of a failed token request.
// When set on Config, token endpoint failures are reported through it instead
// of being returned as *ProtocolError, and the fetch yields no token.
type ErrorHandler func(statusCode int, body string)

// Config describes how tokens are obtained. It is copied into an Authority on
// construction, so later changes by the caller have no effect.
type Config struct {
	// TokenURL is the absolute URL of the token endpoint.
	TokenURL string

	ClientID     string
	ClientSecret string

	// CredentialTransport defaults to CredentialsInHeader.
	CredentialTransport CredentialTransport

	// GrantType defaults to GrantClientCredentials.
	GrantType GrantType

	// Username and Password are required for GrantPassword.
	Username string
	Password string

	// Scopes are sent space-joined in the "scope" field when non-empty.
	Scopes []string

	// OnError is optional, see ErrorHandler.
	OnError ErrorHandler

	// UseRefreshToken makes refreshes use the refresh_token grant when the
	// cached token carries a refresh token. Without it a refresh simply
	// repeats the configured grant.
	UseRefreshToken bool
}

// Validate checks the configuration without contacting the token endpoint.
// The returned error is a *ConfigError.
func (c Config) Validate() error {
	if c.TokenURL == "" {
		return configError("TokenURL", "is required")
	}
	u, err := url.Parse(c.TokenURL)
	if err != nil {
		return configError("TokenURL", fmt.Sprintf("is not a valid URL: %v", err))
	}
	if !u.IsAbs() || u.Host == "" {
		return configError("TokenURL", "must be absolute")
	}

	switch c.CredentialTransport {
	case CredentialsInHeader:
		if c.ClientID == "" {
			return configError("ClientID", "is required")
		}
		if c.ClientSecret == "" {
			return configError("ClientSecret", "is required")
		}
	case CredentialsInForm:
	default:
		return configError("CredentialTransport", fmt.Sprintf("%s is not supported", c.CredentialTransport))
	}

	switch c.GrantType {
	case GrantClientCredentials:
	case GrantPassword:
		if c.Username == "" {
			return configError("Username", "is required for the password grant")
		}
		if c.Password == "" {
			return configError("Password", "is required for the password grant")
		}
	default:
		return configError("GrantType", fmt.Sprintf("%s is not supported", c.GrantType))
	}

	return nil
}

// scope returns the space-joined scope list, or "" when none is configured.
func (c Config) scope() string {
	return strings.Join(c.Scopes, " ")
}

func (c Config) clone() Config {
	c.Scopes = slices.Clone(c.Scopes)
	return c
}
