package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/AmmannChristian/go-oauth2handler/oauth2client"
)

// Builder provides a fluent interface for constructing HTTP clients
// with optional OAuth2 authentication and TLS/mTLS support.
type Builder struct {
	// OAuth2 configuration
	tokenCache   *oauth2client.TokenCache
	oauth2Config *oauth2client.Config
	oauth2Opts   []oauth2client.Option

	// TLS configuration
	tlsEnabled    bool
	tlsCAFile     string
	tlsCertFile   string
	tlsKeyFile    string
	tlsSkipVerify bool

	// HTTP client configuration
	timeout         time.Duration
	baseTransport   http.RoundTripper
	followRedirects bool
}

// NewBuilder creates a new HTTP client builder.
func NewBuilder() *Builder {
	return &Builder{
		timeout:         30 * time.Second, // Default 30s timeout
		followRedirects: true,
	}
}

// WithTokenCache sets an existing token cache for automatic authentication.
// It takes precedence over WithOAuth2.
func (b *Builder) WithTokenCache(cache *oauth2client.TokenCache) *Builder {
	b.tokenCache = cache
	return b
}

// WithOAuth2 enables OAuth2 authentication with a token cache created at
// Build time. Token requests go through the same base transport, including
// its TLS settings, as the authorized requests.
//
// Parameters:
//   - cfg: grant configuration (token URL, client credentials, grant type, scopes)
//   - opts: logging and metrics options (WithLogger, WithLoggingEnabled, WithMeterProvider)
func (b *Builder) WithOAuth2(cfg oauth2client.Config, opts ...oauth2client.Option) *Builder {
	b.oauth2Config = &cfg
	b.oauth2Opts = opts
	return b
}

// WithTLS enables TLS for the connection.
//
// Parameters:
//   - caFile: Path to CA certificate for server verification (optional, uses system roots if empty)
//   - certFile: Path to client certificate for mTLS (optional, must be paired with keyFile)
//   - keyFile: Path to client private key for mTLS (optional, must be paired with certFile)
func (b *Builder) WithTLS(caFile, certFile, keyFile string) *Builder {
	b.tlsEnabled = true
	b.tlsCAFile = caFile
	b.tlsCertFile = certFile
	b.tlsKeyFile = keyFile
	return b
}

// WithInsecureSkipVerify disables TLS certificate verification (NOT RECOMMENDED for production).
// This should only be used for testing or development purposes.
func (b *Builder) WithInsecureSkipVerify() *Builder {
	b.tlsSkipVerify = true
	return b
}

// WithTimeout sets the request timeout for the HTTP client.
// Default is 30 seconds if not specified. The timeout covers the token
// fetch and the retry of a request, since both happen inside the transport.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	return b
}

// WithBaseTransport sets a custom base transport.
// This is useful for adding custom middleware or using a custom connection pool.
func (b *Builder) WithBaseTransport(transport http.RoundTripper) *Builder {
	b.baseTransport = transport
	return b
}

// WithoutRedirects disables automatic redirect following.
// By default, the client follows up to 10 redirects.
func (b *Builder) WithoutRedirects() *Builder {
	b.followRedirects = false
	return b
}

// Build constructs the HTTP client with the configured options.
//
// Returns:
//   - *http.Client: Configured HTTP client
//   - error: Error if TLS or OAuth2 configuration is invalid
func (b *Builder) Build() (*http.Client, error) {
	transport, err := b.buildBaseTransport()
	if err != nil {
		return nil, err
	}

	cache := b.tokenCache
	if cache == nil && b.oauth2Config != nil {
		opts := append([]oauth2client.Option{oauth2client.WithTransport(transport)}, b.oauth2Opts...)
		cache, err = oauth2client.NewTokenCacheFromConfig(*b.oauth2Config, opts...)
		if err != nil {
			return nil, fmt.Errorf("httpclient: OAuth2 config failed: %w", err)
		}
	}

	if cache != nil {
		transport = NewTransport(cache, transport)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   b.timeout,
	}

	if !b.followRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return client, nil
}

func (b *Builder) buildBaseTransport() (http.RoundTripper, error) {
	if b.baseTransport != nil {
		return b.baseTransport, nil
	}

	httpTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		// Fallback to whatever default transport is configured (e.g., a test stub)
		return http.DefaultTransport, nil
	}
	httpTransport = httpTransport.Clone()

	if b.tlsEnabled || b.tlsSkipVerify {
		tlsConfig, err := b.buildTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("httpclient: TLS config failed: %w", err)
		}
		httpTransport.TLSClientConfig = tlsConfig
	} else {
		// Set secure TLS defaults even when TLS is not explicitly configured
		httpTransport.TLSClientConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return httpTransport, nil
}

// buildTLSConfig constructs the TLS configuration for the HTTP client.
func (b *Builder) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: b.tlsSkipVerify, // #nosec G402
	}

	if b.tlsCAFile != "" {
		caCert, err := os.ReadFile(b.tlsCAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}

		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = certPool
	}

	// Load client certificate for mTLS (if both cert and key are provided)
	if b.tlsCertFile != "" && b.tlsKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(b.tlsCertFile, b.tlsKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	} else if b.tlsCertFile != "" || b.tlsKeyFile != "" {
		return nil, errors.New("both TLS cert and key files must be provided for mTLS")
	}

	return tlsConfig, nil
}
