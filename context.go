package goOTP

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's source address to ctx. The engine
// uses it for per-IP rate limiting and audit logging; requests without it
// are throttled by identifier only.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
