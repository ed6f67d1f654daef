package oauth2client

import (
	"log"
	"net/http"

	"go.opentelemetry.io/otel/metric"
)

// Logger is an interface for optional logging in Authority and TokenCache.
// Implementations can log token fetch and refresh events if desired.
type Logger interface {
	Printf(format string, args ...any)
}

// Option is a functional option shared by NewAuthority and NewTokenCache.
type Option func(*settings)

type settings struct {
	httpClient    *http.Client
	logger        Logger
	meterProvider metric.MeterProvider
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Transport: http.DefaultTransport}
	}
	return s
}

// WithTransport sets the RoundTripper used to reach the token endpoint.
// A nil transport selects http.DefaultTransport.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *settings) {
		if rt == nil {
			rt = http.DefaultTransport
		}
		s.httpClient = &http.Client{Transport: rt}
	}
}

// WithHTTPClient sets the HTTP client used to reach the token endpoint.
// It takes precedence over an earlier WithTransport.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		s.httpClient = client
	}
}

// WithLogger sets a custom logger for token fetch and refresh events.
// If not set, no logging will occur.
func WithLogger(logger Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithLoggingEnabled enables logging using the default Go log package.
// This is a convenience option that sets the logger to log.Default().
func WithLoggingEnabled() Option {
	return func(s *settings) {
		s.logger = log.Default()
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider used for token
// metrics. The global provider is used when not set.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *settings) {
		s.meterProvider = mp
	}
}

func (s settings) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
