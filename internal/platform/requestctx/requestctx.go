// Package requestctx carries per-request identity and correlation values.
package requestctx

import "context"

type (
	userIDContextKey    struct{}
	requestIDContextKey struct{}
	localeContextKey    struct{}
)

// WithUserID stores the authenticated user identifier in context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext returns the user identifier stored in context.
func UserIDFromContext(ctx context.Context) string {
	return value(ctx, userIDContextKey{})
}

// WithRequestID stores a request correlation id in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the request correlation id stored in context.
func RequestIDFromContext(ctx context.Context) string {
	return value(ctx, requestIDContextKey{})
}

// WithLocale stores the negotiated response locale in context.
func WithLocale(ctx context.Context, locale string) context.Context {
	return withValue(ctx, localeContextKey{}, locale)
}

// LocaleFromContext returns the negotiated locale, or "" when unset.
func LocaleFromContext(ctx context.Context) string {
	return value(ctx, localeContextKey{})
}

func withValue(ctx context.Context, key any, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func value(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
