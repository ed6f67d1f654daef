// Package testutil provides test helpers for go-oauth2handler packages.
//
// It includes utilities to spin up IPv4-only local HTTP servers (avoiding IPv6 in sandboxes),
// an in-process OAuth2 token endpoint and a protected resource that validates the issued tokens.
//
// # Utilities
//
//   - NewLocalHTTPServer: start httptest server bound to 127.0.0.1
//   - TokenServer: client_credentials, password and refresh_token grants issuing RS256 JWTs
//   - ResourceServer: validates bearer tokens against the TokenServer JWKS
//   - RoundTripFunc, StaticResponse, StaticJSONResponse: inline http.RoundTripper implementations
//   - GenerateTestKeyPair: RSA key pair and JWKS document for signing test tokens
package testutil
