package goAuthClient

import "context"

type requestIDContextKey struct{}
type skipAuthContextKey struct{}

// WithRequestID sets the id sent in Config.Request.RequestIDHeader for requests made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// WithoutAuth marks requests made with ctx as public: no Authorization header is attached and
// auth failures are returned as plain responses.
func WithoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipAuthContextKey{}, true)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

func skipAuthFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}

	skip, _ := ctx.Value(skipAuthContextKey{}).(bool)
	return skip
}
