package httpclient_test

import (
	"fmt"
	"log"
	"time"

	"github.com/AmmannChristian/go-oauth2handler/httpclient"
	"github.com/AmmannChristian/go-oauth2handler/oauth2client"
)

var exampleConfig = oauth2client.Config{
	TokenURL:     "https://auth.example.com/connect/token",
	ClientID:     "client-id",
	ClientSecret: "client-secret",
	Scopes:       []string{"api"},
}

// ExampleNewClient demonstrates the simple way to create an authorized client.
func ExampleNewClient() {
	client, err := httpclient.NewClient(exampleConfig, nil)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Cached token: %v\n", client.TokenCache().Cached())
	// Output: Cached token: <nil>
}

// ExampleNewBuilder demonstrates using the builder pattern for HTTP clients.
func ExampleNewBuilder() {
	client, err := httpclient.NewBuilder().
		WithOAuth2(exampleConfig).
		WithTimeout(60 * time.Second).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Client configured with timeout: %v\n", client.Timeout)
	// Output: Client configured with timeout: 1m0s
}

// ExampleBuilder_WithOAuth2 demonstrates the password grant with credentials in the form body.
func ExampleBuilder_WithOAuth2() {
	_, err := httpclient.NewBuilder().
		WithOAuth2(oauth2client.Config{
			TokenURL:            "https://auth.example.com/connect/token",
			ClientID:            "my-client-id",
			ClientSecret:        "my-client-secret",
			CredentialTransport: oauth2client.CredentialsInForm,
			GrantType:           oauth2client.GrantPassword,
			Username:            "alice",
			Password:            "s3cret",
		}, oauth2client.WithLoggingEnabled()).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("OAuth2 authentication configured")
	// Output: OAuth2 authentication configured
}

// ExampleBuilder_WithTLS demonstrates TLS configuration.
func ExampleBuilder_WithTLS() {
	_, err := httpclient.NewBuilder().
		WithOAuth2(exampleConfig).
		WithTLS(
			"/path/to/ca.crt",     // CA certificate
			"/path/to/client.crt", // Client certificate (optional)
			"/path/to/client.key", // Client key (optional)
		).
		Build()
	if err != nil {
		// In this example, files don't exist, so we expect an error
		fmt.Println("TLS configuration attempted")
		return
	}

	fmt.Println("TLS configured")
	// Output: TLS configuration attempted
}

// ExampleNewTransport demonstrates wrapping an existing transport.
func ExampleNewTransport() {
	cache, err := oauth2client.NewTokenCacheFromConfig(exampleConfig)
	if err != nil {
		log.Fatal(err)
	}

	transport := httpclient.NewTransport(cache, nil)

	fmt.Printf("Transport type: %T\n", transport)
	// Output: Transport type: *httpclient.Transport
}
