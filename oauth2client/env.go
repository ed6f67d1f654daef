package oauth2client

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// DefaultEnvPrefix is used by ConfigFromEnv when no prefix is given.
const DefaultEnvPrefix = "OAUTH2_"

type envConfig struct {
	TokenURL            string              `env:"TOKEN_URL"`
	ClientID            string              `env:"CLIENT_ID"`
	ClientSecret        string              `env:"CLIENT_SECRET"`
	GrantType           GrantType           `env:"GRANT_TYPE" envDefault:"client_credentials"`
	CredentialTransport CredentialTransport `env:"CREDENTIALS" envDefault:"header"`
	Username            string              `env:"USERNAME"`
	Password            string              `env:"PASSWORD"`
	Scopes              []string            `env:"SCOPES" envSeparator:" "`
	UseRefreshToken     bool                `env:"USE_REFRESH_TOKEN" envDefault:"false"`
}

// ConfigFromEnv builds a Config from environment variables named
// <prefix>TOKEN_URL, CLIENT_ID, CLIENT_SECRET, GRANT_TYPE, CREDENTIALS,
// USERNAME, PASSWORD, SCOPES (space separated) and USE_REFRESH_TOKEN.
// The result is validated before it is returned.
func ConfigFromEnv(prefix string) (Config, error) {
	return configFromEnv(prefix, nil)
}

// configFromEnv is ConfigFromEnv with an explicit environment; a nil map reads the process environment.
func configFromEnv(prefix string, environment map[string]string) (Config, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}

	opts := env.Options{Prefix: prefix}
	if environment != nil {
		opts.Environment = environment
	}

	parsed, err := env.ParseAsWithOptions[envConfig](opts)
	if err != nil {
		return Config{}, fmt.Errorf("oauth2: failed to load configuration from environment: %w", err)
	}

	cfg := Config{
		TokenURL:            parsed.TokenURL,
		ClientID:            parsed.ClientID,
		ClientSecret:        parsed.ClientSecret,
		GrantType:           parsed.GrantType,
		CredentialTransport: parsed.CredentialTransport,
		Username:            parsed.Username,
		Password:            parsed.Password,
		Scopes:              parsed.Scopes,
		UseRefreshToken:     parsed.UseRefreshToken,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
