package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// IdentityResolver turns a bearer token into the user it was issued for
type IdentityResolver struct {
	decoder TokenDecoder
	users   UserLookup
	logger  Logger
}

// NewIdentityResolver returns a resolver that decodes with decoder and loads
// users from users.
func NewIdentityResolver(decoder TokenDecoder, users UserLookup) *IdentityResolver {
	_, logger := ResolveLogger("auth.identity_resolver", nil, nil)
	return &IdentityResolver{
		decoder: decoder,
		users:   users,
		logger:  logger,
	}
}

func (r *IdentityResolver) WithLogger(logger Logger) *IdentityResolver {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Resolve decodes token and loads its subject. A bad token and an unknown
// user both return ErrInvalidCredentials. The account status is not checked.
func (r *IdentityResolver) Resolve(ctx context.Context, token string) (Identity, error) {
	if r.decoder == nil {
		return nil, ErrInvalidCredentials
	}

	claims, err := r.decoder.Decode(token)
	if err != nil || claims == nil || claims.Subject == "" {
		r.logger.Debug("token did not decode", "error", err)
		return nil, ErrInvalidCredentials
	}

	if r.users == nil {
		return nil, ErrInvalidCredentials
	}

	identity, err := r.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.IsNotFound(err) {
			r.logger.Debug("token subject not found", "subject", claims.Subject)
			return nil, ErrInvalidCredentials
		}
		r.logger.Error("identity resolver user lookup error", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user").
			WithCode(errors.CodeInternal)
	}

	if isNilIdentity(identity) || identity.Username() != claims.Subject {
		return nil, ErrInvalidCredentials
	}

	return identity, nil
}

// RequireActive returns identity unchanged when the account is active
func (r *IdentityResolver) RequireActive(identity Identity) (Identity, error) {
	if isNilIdentity(identity) {
		return nil, ErrInvalidCredentials
	}
	if !identity.IsActive() {
		return nil, ErrInactiveAccount
	}
	return identity, nil
}

// ResolveActive is Resolve followed by RequireActive
func (r *IdentityResolver) ResolveActive(ctx context.Context, token string) (Identity, error) {
	identity, err := r.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	return r.RequireActive(identity)
}
