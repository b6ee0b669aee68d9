package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by the middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Authenticate resolves the bearer token of r into an identity.
func (t *Tokens) Authenticate(r *http.Request) (Identity, error) {
	raw, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return t.Verify(raw)
}
