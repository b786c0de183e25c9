package auth

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// Authenticator verifies username/password pairs and mints session tokens
type Authenticator struct {
	users        UserLookup
	hasher       PasswordAuthenticator
	tokens       TokenIssuer
	accessTTL    time.Duration
	logger       Logger
	activitySink ActivitySink

	decoyOnce sync.Once
	decoyHash string
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(users UserLookup, hasher PasswordAuthenticator, tokens TokenIssuer, cfg Config) *Authenticator {
	if hasher == nil {
		hasher = defaultHasher
	}

	accessTTL := DefaultAccessTokenTTL
	if cfg != nil && cfg.GetAccessTokenTTL() != 0 {
		accessTTL = cfg.GetAccessTokenTTL()
	}

	_, logger := ResolveLogger("auth.authenticator", nil, nil)

	return &Authenticator{
		users:        users,
		hasher:       hasher,
		tokens:       tokens,
		accessTTL:    accessTTL,
		logger:       logger,
		activitySink: noopActivitySink{},
	}
}

func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (a *Authenticator) WithActivitySink(sink ActivitySink) *Authenticator {
	a.activitySink = normalizeActivitySink(sink)
	return a
}

// Authenticate returns the identity for username when password matches and
// the account is active. Every rejection is ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	identity, err := a.lookup(ctx, username)
	if err != nil {
		if errors.IsNotFound(err) {
			a.burnVerify(password)
			a.loginFailed(ctx, username, nil, "unknown_user")
			return nil, ErrInvalidCredentials
		}
		a.logger.Error("Authenticate user lookup error", "error", err)
		a.loginFailed(ctx, username, nil, "lookup_error")
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user").
			WithCode(errors.CodeInternal)
	}

	if err := a.hasher.ComparePasswordAndHash(password, identity.PasswordHash()); err != nil {
		a.loginFailed(ctx, username, identity, "password_mismatch")
		return nil, ErrInvalidCredentials
	}

	if !identity.IsActive() {
		a.loginFailed(ctx, username, identity, "inactive")
		return nil, ErrInvalidCredentials
	}

	return identity, nil
}

// Login authenticates and issues an access token whose subject is the username
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, error) {
	identity, err := a.Authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}

	if a.tokens == nil {
		return "", errors.New("authenticator has no token issuer", errors.CategoryInternal).
			WithCode(errors.CodeInternal)
	}

	token, err := a.tokens.IssueWithTTL(TokenClaims{Subject: identity.Username()}, a.accessTTL)
	if err != nil {
		a.logger.Error("Login failed to issue token", "error", err)
		a.loginFailed(ctx, username, identity, "token_error")
		return "", err
	}

	recordActivity(ctx, a.activitySink, a.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     actorFromIdentity(identity),
		UserID:    identity.ID(),
		Username:  identity.Username(),
	})

	return token, nil
}

// AccessTokenTTL returns the lifetime of tokens issued by Login
func (a *Authenticator) AccessTokenTTL() time.Duration {
	return a.accessTTL
}

func (a *Authenticator) lookup(ctx context.Context, username string) (Identity, error) {
	if a.users == nil {
		return nil, ErrIdentityNotFound
	}

	identity, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if isNilIdentity(identity) {
		return nil, ErrIdentityNotFound
	}

	// lookups must match exactly, stores with case folding collations are not trusted
	if identity.Username() != username {
		return nil, ErrIdentityNotFound
	}

	return identity, nil
}

// burnVerify runs a verification against a throwaway hash so unknown
// usernames cost about as much as wrong passwords.
func (a *Authenticator) burnVerify(password string) {
	a.decoyOnce.Do(func() {
		hash, err := a.hasher.HashPassword("decoy-password")
		if err != nil {
			a.logger.Debug("could not build decoy hash", "error", err)
			return
		}
		a.decoyHash = hash
	})

	if a.decoyHash != "" {
		_ = a.hasher.ComparePasswordAndHash(password, a.decoyHash)
	}
}

func (a *Authenticator) loginFailed(ctx context.Context, username string, identity Identity, reason string) {
	a.logger.Info("login rejected", "username", username, "reason", reason)

	event := ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     actorFromIdentity(identity),
		Username:  username,
		Metadata:  map[string]any{"reason": reason},
	}
	if identity != nil {
		event.UserID = identity.ID()
	}

	recordActivity(ctx, a.activitySink, a.logger, event)
}

func isNilIdentity(identity Identity) bool {
	if identity == nil {
		return true
	}
	v := reflect.ValueOf(identity)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
