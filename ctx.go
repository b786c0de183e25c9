package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// DefaultContextKey is the fiber locals key the middleware stores identities under
const DefaultContextKey = "user"

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithIdentity sets the resolved Identity in the given context
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok && !isNilIdentity(raw)
}

// IdentityFromFiber reads the identity stored by the middleware in fiber locals
func IdentityFromFiber(c *fiber.Ctx, key string) (Identity, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	if identity, ok := c.Locals(key).(Identity); ok && !isNilIdentity(identity) {
		return identity, true
	}
	return IdentityFromContext(c.UserContext())
}
