package auth

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

const (
	DefaultAuthScheme  = "Bearer"
	DefaultTokenLookup = "header:Authorization"

	defaultAccessTokenMinutes  = 1440
	defaultDefaultTokenMinutes = 15
)

// Options is the Config implementation. Values can be loaded from the
// environment with LoadOptionsFromEnv.
type Options struct {
	SigningKey                string `env:"SECRET_KEY" json:"-"`
	SigningMethod             string `env:"JWT_ALGORITHM" envDefault:"HS256" json:"signing_method"`
	AccessTokenExpireMinutes  int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"1440" json:"access_token_expire_minutes"`
	DefaultTokenExpireMinutes int    `env:"DEFAULT_TOKEN_EXPIRE_MINUTES" envDefault:"15" json:"default_token_expire_minutes"`
	AuthScheme                string `env:"AUTH_SCHEME" envDefault:"Bearer" json:"auth_scheme"`
	ContextKey                string `env:"AUTH_CONTEXT_KEY" envDefault:"user" json:"context_key"`
	TokenLookup               string `env:"AUTH_TOKEN_LOOKUP" envDefault:"header:Authorization" json:"token_lookup"`
}

var _ Config = Options{}

// DefaultOptions returns the built in configuration
func DefaultOptions() Options {
	return Options{
		SigningKey:                DefaultSecretKey,
		SigningMethod:             DefaultSigningMethod,
		AccessTokenExpireMinutes:  defaultAccessTokenMinutes,
		DefaultTokenExpireMinutes: defaultDefaultTokenMinutes,
		AuthScheme:                DefaultAuthScheme,
		ContextKey:                DefaultContextKey,
		TokenLookup:               DefaultTokenLookup,
	}
}

// LoadOptionsFromEnv overlays environment variables on DefaultOptions
func LoadOptionsFromEnv() (Options, error) {
	opts := DefaultOptions()
	if err := env.Parse(&opts); err != nil {
		return Options{}, errors.Wrap(err, errors.CategoryBadInput, "failed to parse auth environment")
	}

	if opts.AccessTokenExpireMinutes < 0 || opts.DefaultTokenExpireMinutes < 0 {
		return Options{}, errors.New("token lifetimes must not be negative", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	return opts, nil
}

func (o Options) GetSigningKey() string {
	if o.SigningKey == "" {
		return DefaultSecretKey
	}
	return o.SigningKey
}

func (o Options) GetSigningMethod() string {
	if o.SigningMethod == "" {
		return DefaultSigningMethod
	}
	return o.SigningMethod
}

func (o Options) GetAccessTokenTTL() time.Duration {
	if o.AccessTokenExpireMinutes <= 0 {
		return DefaultAccessTokenTTL
	}
	return time.Duration(o.AccessTokenExpireMinutes) * time.Minute
}

func (o Options) GetDefaultTokenTTL() time.Duration {
	if o.DefaultTokenExpireMinutes <= 0 {
		return DefaultTokenTTL
	}
	return time.Duration(o.DefaultTokenExpireMinutes) * time.Minute
}

func (o Options) GetAuthScheme() string {
	if o.AuthScheme == "" {
		return DefaultAuthScheme
	}
	return o.AuthScheme
}

func (o Options) GetContextKey() string {
	if o.ContextKey == "" {
		return DefaultContextKey
	}
	return o.ContextKey
}

func (o Options) GetTokenLookup() string {
	if o.TokenLookup == "" {
		return DefaultTokenLookup
	}
	return o.TokenLookup
}
