package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// DefaultTokenTTL applies when Issue is called without an explicit ttl
	DefaultTokenTTL = 15 * time.Minute
	// DefaultAccessTokenTTL is the lifetime of tokens minted by Login
	DefaultAccessTokenTTL = 24 * time.Hour
)

// TokenService signs and verifies session tokens with a single SigningConfig
type TokenService struct {
	signing    SigningConfig
	defaultTTL time.Duration
	now        func() time.Time
	newID      func() string
	logger     Logger
}

var (
	_ TokenIssuer  = (*TokenService)(nil)
	_ TokenDecoder = (*TokenService)(nil)
)

// TokenServiceOption configures a TokenService
type TokenServiceOption func(*TokenService)

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithClock replaces time.Now for issuing and expiry checks
func WithClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenService) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithDefaultTTL changes the lifetime used by Issue
func WithDefaultTTL(ttl time.Duration) TokenServiceOption {
	return func(ts *TokenService) {
		if ttl > 0 {
			ts.defaultTTL = ttl
		}
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signing SigningConfig, opts ...TokenServiceOption) *TokenService {
	ts := &TokenService{
		signing:    signing,
		defaultTTL: DefaultTokenTTL,
		now:        time.Now,
		newID:      uuid.NewString,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	_, ts.logger = ResolveLogger("auth.token_service", nil, ts.logger)

	return ts
}

// Issue signs claims with the default ttl
func (ts *TokenService) Issue(claims TokenClaims) (string, error) {
	return ts.IssueWithTTL(claims, ts.defaultTTL)
}

// IssueWithTTL signs a copy of claims that expires ttl from now. A ttl of zero
// or less yields a token that is already expired.
func (ts *TokenService) IssueWithTTL(claims TokenClaims, ttl time.Duration) (string, error) {
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}

	now := ts.now()

	out := claims.Clone()
	out.IssuedAt = now
	out.ExpiresAt = now.Add(ttl)
	out.ID = ts.newID()

	token := jwt.NewWithClaims(ts.signing.signingMethod(), out.mapClaims())

	signedString, err := token.SignedString(ts.signing.signingKey())
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Decode verifies the token and returns its claims. Every failure returns
// ErrTokenInvalid; the cause is only logged.
func (ts *TokenService) Decode(tokenString string) (*TokenClaims, error) {
	alg := ts.signing.signingMethod().Alg()

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signing.signingKey(), nil
	},
		jwt.WithValidMethods([]string{alg}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	)

	if err != nil {
		ts.logger.Debug("token rejected", "error", err, "expired", errors.Is(err, jwt.ErrTokenExpired))
		return nil, ErrTokenInvalid
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		ts.logger.Debug("token rejected", "error", "unexpected claims type")
		return nil, ErrTokenInvalid
	}

	claims, ok := claimsFromMap(mc)
	if !ok {
		ts.logger.Debug("token rejected", "error", "missing subject or expiry")
		return nil, ErrTokenInvalid
	}

	if claims.Expired(ts.now()) {
		ts.logger.Debug("token rejected", "error", "expired")
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// SigningAlgorithm returns the alg used by this service
func (ts *TokenService) SigningAlgorithm() string {
	return ts.signing.Algorithm()
}
