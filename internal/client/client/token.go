package client

import "context"

// TokenSource supplies the bearer credential for outbound requests. An
// empty token means the request is sent unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) string

func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// StaticToken always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) string { return string(t) }
