package oracle

import "context"

type sessionTokenKey struct{}

// WithSessionToken attaches the caller's session token to ctx. Providers that
// authenticate per user (httpchat) prefer it over their configured token.
func WithSessionToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionTokenKey{}, token)
}

// SessionToken returns the token attached by WithSessionToken.
func SessionToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(sessionTokenKey{}).(string)
	return token, ok && token != ""
}
