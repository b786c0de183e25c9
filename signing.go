package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultSecretKey is used when no signing key is configured. Deployments
// must override it; UsesDefaultSecret lets callers warn about it.
const DefaultSecretKey = "your-secret-key-change-this-in-production"

// DefaultSigningMethod is the algorithm used when none is configured
const DefaultSigningMethod = "HS256"

var allowedSigningMethods = map[string]*jwt.SigningMethodHMAC{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// SigningConfig holds the key and algorithm used to sign and verify tokens.
// It is built once at startup and never changed afterwards.
type SigningConfig struct {
	key           []byte
	method        jwt.SigningMethod
	defaultSecret bool
}

// NewSigningConfig validates alg and copies key. An empty key selects
// DefaultSecretKey, an empty alg selects HS256.
func NewSigningConfig(key []byte, alg string) (SigningConfig, error) {
	alg = strings.ToUpper(strings.TrimSpace(alg))
	if alg == "" {
		alg = DefaultSigningMethod
	}

	method, ok := allowedSigningMethods[alg]
	if !ok {
		return SigningConfig{}, ErrUnsupportedSigningMethod
	}

	cfg := SigningConfig{method: method}
	if len(key) == 0 {
		cfg.key = []byte(DefaultSecretKey)
		cfg.defaultSecret = true
	} else {
		cfg.key = append([]byte(nil), key...)
		cfg.defaultSecret = string(key) == DefaultSecretKey
	}

	return cfg, nil
}

// NewSigningConfigFromConfig builds the signing value from a Config
func NewSigningConfigFromConfig(cfg Config) (SigningConfig, error) {
	if cfg == nil {
		return SigningConfig{}, goerrors.New("config must not be nil", goerrors.CategoryBadInput)
	}
	return NewSigningConfig([]byte(cfg.GetSigningKey()), cfg.GetSigningMethod())
}

// Algorithm returns the JWS alg header value, e.g. "HS256"
func (s SigningConfig) Algorithm() string {
	if s.method == nil {
		return DefaultSigningMethod
	}
	return s.method.Alg()
}

// UsesDefaultSecret reports whether the built in development secret is in use
func (s SigningConfig) UsesDefaultSecret() bool {
	return s.defaultSecret || len(s.key) == 0
}

func (s SigningConfig) signingMethod() jwt.SigningMethod {
	if s.method == nil {
		return jwt.SigningMethodHS256
	}
	return s.method
}

func (s SigningConfig) signingKey() []byte {
	if len(s.key) == 0 {
		return []byte(DefaultSecretKey)
	}
	return s.key
}
