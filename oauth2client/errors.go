package oauth2client

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every *ConfigError via errors.Is.
	ErrInvalidConfig = errors.New("oauth2: invalid configuration")

	// ErrProtocol is matched by every *ProtocolError via errors.Is.
	ErrProtocol = errors.New("oauth2: token endpoint error")

	// ErrNoToken is returned by the oauth2.TokenSource adapter when the token
	// endpoint produced no token (error callback configured or request cancelled).
	ErrNoToken = errors.New("oauth2: no token available")
)

// ConfigError reports a missing or invalid configuration value.
// It is returned before any network call is made and is never retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("oauth2: invalid configuration: %s %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ProtocolError is returned when the token endpoint answers with a non-success
// status and no error callback is configured.
type ProtocolError struct {
	// StatusCode is the HTTP status returned by the token endpoint.
	StatusCode int
	// Body is the raw response body, typically an OAuth2 error document
	// such as {"error":"invalid_client"}.
	Body string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("oauth2: token endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// Is reports whether target is ErrProtocol.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

func configError(field, reason string) error {
	return &ConfigError{Field: field, Reason: reason}
}
