// Package httpclient decorates net/http clients with OAuth2 bearer tokens.
//
// Transport wraps any http.RoundTripper. It attaches the token held by an
// oauth2client.TokenCache, and when a response comes back 401 it refreshes the
// token once and resends the request once. Requests that already carry an
// Authorization header are left alone.
//
// # Features
//
//   - Single token request for any number of concurrent callers on an empty cache
//   - Exactly one refresh and one retry per 401; the retry's response is final
//   - Request bodies are replayed through Request.GetBody; others get the 401 back
//   - Fluent Builder with TLS 1.2+ defaults, custom CA/mTLS, timeouts and redirect control
//   - Client exposing Token and RefreshToken next to the usual http.Client methods
//
// # Quick Start
//
//	client, err := httpclient.NewBuilder().
//	    WithOAuth2(oauth2client.Config{
//	        TokenURL:     "https://auth.example.com/connect/token",
//	        ClientID:     "client-id",
//	        ClientSecret: "client-secret",
//	        Scopes:       []string{"api"},
//	    }).
//	    WithTimeout(60 * time.Second).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.Get("https://api.example.com/data")
//
// # Manual Transport Wrapping
//
//	transport := httpclient.NewTransport(cache, nil)
//	client := &http.Client{Transport: transport}
//
// Transport is safe for concurrent use.
package httpclient
