// Package context holds the request-scoped values shared by transport and
// logging.
package context

import "context"

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom reports the request id stored in ctx, if any.
func RequestIDFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// GetRequestID is RequestIDFrom without the ok flag.
func GetRequestID(ctx context.Context) string {
	id, _ := RequestIDFrom(ctx)
	return id
}
