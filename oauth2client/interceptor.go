package oauth2client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const authorizationMetadataKey = "authorization"

// UnaryClientInterceptor returns a gRPC unary client interceptor that adds
// "authorization: Bearer <token>" to outgoing metadata.
//
// Calls that already carry authorization metadata are passed through. A call
// failing with codes.Unauthenticated triggers one cache refresh and, if a new
// token is obtained, exactly one retry whose result is returned as-is.
//
// Usage:
//
//	conn, err := grpc.NewClient(
//	    "server:9090",
//	    grpc.WithUnaryInterceptor(cache.UnaryClientInterceptor()),
//	)
func (c *TokenCache) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		if hasAuthorization(ctx) {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		token, err := c.Token(ctx)
		if err != nil {
			return fmt.Errorf("oauth2: failed to get token: %w", err)
		}

		err = invoker(withBearer(ctx, token), method, req, reply, cc, opts...)
		if status.Code(err) != codes.Unauthenticated {
			return err
		}

		token, rerr := c.Refresh(ctx)
		if rerr != nil {
			return fmt.Errorf("oauth2: failed to refresh token: %w", rerr)
		}
		if token == nil {
			return err
		}
		return invoker(withBearer(ctx, token), method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor returns a gRPC stream client interceptor that adds
// "authorization: Bearer <token>" to outgoing metadata.
//
// If stream creation fails with codes.Unauthenticated the token is refreshed
// once and stream creation retried once. Errors surfacing later on the stream
// are left to the caller.
//
// Usage:
//
//	conn, err := grpc.NewClient(
//	    "server:9090",
//	    grpc.WithStreamInterceptor(cache.StreamClientInterceptor()),
//	)
func (c *TokenCache) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		if hasAuthorization(ctx) {
			return streamer(ctx, desc, cc, method, opts...)
		}

		token, err := c.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("oauth2: failed to get token: %w", err)
		}

		stream, err := streamer(withBearer(ctx, token), desc, cc, method, opts...)
		if status.Code(err) != codes.Unauthenticated {
			return stream, err
		}

		token, rerr := c.Refresh(ctx)
		if rerr != nil {
			return nil, fmt.Errorf("oauth2: failed to refresh token: %w", rerr)
		}
		if token == nil {
			return stream, err
		}
		return streamer(withBearer(ctx, token), desc, cc, method, opts...)
	}
}

func hasAuthorization(ctx context.Context) bool {
	md, ok := metadata.FromOutgoingContext(ctx)
	return ok && len(md.Get(authorizationMetadataKey)) > 0
}

// withBearer attaches token to ctx; a nil token leaves ctx unchanged.
func withBearer(ctx context.Context, token *Token) context.Context {
	if token == nil {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, authorizationMetadataKey, "Bearer "+token.AccessToken)
}
