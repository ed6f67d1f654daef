// Package grpcclient provides a fluent builder for secure gRPC client connections with optional
// OAuth2 authentication.
//
// It defaults to TLS 1.2+ using system roots to avoid accidental plaintext connections. Optional
// methods let you add the oauth2client.TokenCache interceptors, custom CA or mTLS credentials, and
// extra dial options.
//
// # Quick Start
//
//	conn, err := grpcclient.NewBuilder().
//	    WithAddress("server.example.com:9090").
//	    WithOAuth2(oauth2client.Config{
//	        TokenURL:     "https://auth.example.com/connect/token",
//	        ClientID:     "client-id",
//	        ClientSecret: "client-secret",
//	    }).
//	    WithTLS("/path/to/ca.crt", "", "", "server.example.com").
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
// # TLS Behavior
//
// TLS is enabled by default with system CAs and TLS 1.2 minimum. WithTLS allows supplying a custom
// root CA and optional client cert/key for mTLS; both cert and key must be provided together.
package grpcclient
