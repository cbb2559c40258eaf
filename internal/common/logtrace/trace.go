package logtrace

import (
	"context"
)

type requestIdKeyType struct{}

var requestIdKey = requestIdKeyType{}

// WithRequestId returns a copy of ctx carrying the request id.
func WithRequestId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIdKey, id)
}

// RequestIdFromContext returns the request id stored in ctx, or "".
func RequestIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(requestIdKey).(string)
	if !ok {
		return ""
	}
	return r
}
