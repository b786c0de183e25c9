package auth

import (
	"context"
	"time"
)

// Logger is the structured logger used across the package. Args are
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerProvider hands out named loggers
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// Identity holds the attributes of a user record resolved by username
type Identity interface {
	ID() string
	Username() string
	PasswordHash() string
	IsActive() bool
}

// UserLookup is the read-only user store the core queries. A missing user is
// reported as ErrIdentityNotFound or a nil Identity.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (Identity, error)
}

// UserLookupFunc adapts a function into a UserLookup.
type UserLookupFunc func(ctx context.Context, username string) (Identity, error)

// FindByUsername satisfies the UserLookup interface.
func (f UserLookupFunc) FindByUsername(ctx context.Context, username string) (Identity, error) {
	if f == nil {
		return nil, ErrIdentityNotFound
	}
	return f(ctx, username)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenIssuer signs claims into bearer tokens
type TokenIssuer interface {
	Issue(claims TokenClaims) (string, error)
	IssueWithTTL(claims TokenClaims, ttl time.Duration) (string, error)
}

// TokenDecoder verifies a bearer token and returns its claims
type TokenDecoder interface {
	Decode(token string) (*TokenClaims, error)
}

// TokenDecoderFunc adapts a function into a TokenDecoder.
type TokenDecoderFunc func(token string) (*TokenClaims, error)

// Decode satisfies the TokenDecoder interface.
func (f TokenDecoderFunc) Decode(token string) (*TokenClaims, error) {
	if f == nil {
		return nil, ErrTokenInvalid
	}
	return f(token)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetAccessTokenTTL() time.Duration
	GetDefaultTokenTTL() time.Duration
	GetAuthScheme() string
	GetContextKey() string
	GetTokenLookup() string
}
