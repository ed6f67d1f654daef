// Package oauth2client acquires and caches OAuth2 bearer tokens for HTTP and gRPC clients.
//
// An Authority runs one grant against a token endpoint. A TokenCache holds at most one token
// and serializes fetches and refreshes, so concurrent callers against an empty cache share a
// single token request. The cache also provides gRPC client interceptors and an
// oauth2.TokenSource adapter; httpclient.Transport builds on it for net/http.
//
// # Features
//
//   - client_credentials and password grants, credentials in a Basic header or in the form body
//   - optional scope list, sent space-joined as "scope"
//   - error callback (Config.OnError) turning token endpoint failures into an absent token
//   - refresh once on Unauthenticated, optionally via the refresh_token grant
//   - configuration from environment variables (ConfigFromEnv)
//   - optional logging (WithLogger, WithLoggingEnabled) and OpenTelemetry metrics (WithMeterProvider)
//
// # Quick Start
//
//	cache, err := oauth2client.NewTokenCacheFromConfig(oauth2client.Config{
//	    TokenURL:     "https://auth.example.com/connect/token",
//	    ClientID:     "client-id",
//	    ClientSecret: "client-secret",
//	    Scopes:       []string{"api"},
//	}, oauth2client.WithLoggingEnabled())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	conn, err := grpc.NewClient(
//	    "server:9090",
//	    grpc.WithUnaryInterceptor(cache.UnaryClientInterceptor()),
//	    grpc.WithStreamInterceptor(cache.StreamClientInterceptor()),
//	)
//
// # Errors
//
// Invalid configuration is reported as *ConfigError before any request is sent. A non-success
// response from the token endpoint is a *ProtocolError carrying the status and body, unless
// Config.OnError is set. Transport errors are wrapped and returned. A cancelled context yields
// a nil token and a nil error.
//
// # Notes
//
//   - Token lifetimes are reported in Token.ExpiresIn but never used to evict the cache.
//   - One TokenCache holds one token; use separate caches for separate clients.
package oauth2client
