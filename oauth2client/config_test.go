package oauth2client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGrantType(t *testing.T) {
	tests := []struct {
		in      string
		want    GrantType
		wantErr bool
	}{
		{in: "", want: GrantClientCredentials},
		{in: "client_credentials", want: GrantClientCredentials},
		{in: " Client_Credentials ", want: GrantClientCredentials},
		{in: "password", want: GrantPassword},
		{in: "authorization_code", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGrantType(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCredentialTransport(t *testing.T) {
	tests := []struct {
		in      string
		want    CredentialTransport
		wantErr bool
	}{
		{in: "", want: CredentialsInHeader},
		{in: "header", want: CredentialsInHeader},
		{in: "basic", want: CredentialsInHeader},
		{in: "FORM", want: CredentialsInForm},
		{in: "body", want: CredentialsInForm},
		{in: "query", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCredentialTransport(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGrantType_String(t *testing.T) {
	assert.Equal(t, "client_credentials", GrantClientCredentials.String())
	assert.Equal(t, "password", GrantPassword.String())
	assert.Equal(t, "GrantType(7)", GrantType(7).String())
}

func TestCredentialTransport_String(t *testing.T) {
	assert.Equal(t, "header", CredentialsInHeader.String())
	assert.Equal(t, "form", CredentialsInForm.String())
	assert.Equal(t, "CredentialTransport(9)", CredentialTransport(9).String())
}

func TestConfig_Validate_UnknownCredentialTransport(t *testing.T) {
	cfg := validConfig()
	cfg.CredentialTransport = CredentialTransport(5)

	err := cfg.Validate()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "CredentialTransport", cfgErr.Field)
}

func TestConfig_Validate_Valid(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.GrantType = GrantPassword
	cfg.Username = "user"
	cfg.Password = "pw"
	assert.NoError(t, cfg.Validate())
}

func TestConfigError_Error(t *testing.T) {
	err := configError("TokenURL", "is required")
	assert.EqualError(t, err, "oauth2: invalid configuration: TokenURL is required")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.NotErrorIs(t, err, ErrProtocol)
}

func TestProtocolError_Error(t *testing.T) {
	err := &ProtocolError{StatusCode: 400, Body: `{"error":"invalid_client"}`}
	assert.EqualError(t, err, `oauth2: token endpoint returned status 400: {"error":"invalid_client"}`)
	assert.ErrorIs(t, err, ErrProtocol)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}
