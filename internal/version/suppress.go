package version

import "context"

type contextKey string

const suppressKey contextKey = "versioning_suppressed"

// Suppress returns a context under which MaybeSnapshot records nothing.
// Used for bounded scopes like bulk imports. Because the flag lives on the
// derived context, versioning is re-enabled on every exit path automatically,
// including panics: callers that keep using the parent context are
// unaffected.
func Suppress(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressKey, true)
}

// Suppressed reports whether versioning is disabled for this context.
func Suppressed(ctx context.Context) bool {
	v, _ := ctx.Value(suppressKey).(bool)
	return v
}
