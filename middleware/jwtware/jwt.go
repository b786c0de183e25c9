package jwtware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-credauth"
)

var (
	defaultTokenLookup       = "header:" + fiber.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// IdentityResolver turns raw bearer tokens into identities
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (auth.Identity, error)
	ResolveActive(ctx context.Context, token string) (auth.Identity, error)
}

// ValidationListener is invoked after a token resolved but before the handler runs.
type ValidationListener func(c *fiber.Ctx, identity auth.Identity) error

type Config struct {
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler
	// Resolver is required
	Resolver    IdentityResolver
	ContextKey  string
	TokenLookup string
	AuthScheme  string

	// AllowInactive skips the active account check
	AllowInactive bool
	// Optional lets requests without a token through with no identity set.
	// A token that is present but invalid is still rejected.
	Optional bool

	ValidationListeners []ValidationListener
}

// New returns a fiber middleware that authenticates requests with bearer tokens
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := ExtractRawTokenFromContext(c, extractors)
		if err != nil || raw == "" {
			if cfg.Optional {
				return c.Next()
			}
			return cfg.ErrorHandler(c, auth.ErrInvalidCredentials)
		}

		ctx := c.UserContext()

		var identity auth.Identity
		if cfg.AllowInactive {
			identity, err = cfg.Resolver.Resolve(ctx, raw)
		} else {
			identity, err = cfg.Resolver.ResolveActive(ctx, raw)
		}
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if err := cfg.runValidationListeners(c, identity); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, identity)
		c.SetUserContext(auth.WithIdentity(ctx, identity))

		return cfg.SuccessHandler(c)
	}
}

// ConfigFromAuth maps auth options onto a middleware Config
func ConfigFromAuth(opts auth.Config, resolver IdentityResolver) Config {
	return Config{
		Resolver:    resolver,
		ContextKey:  opts.GetContextKey(),
		TokenLookup: opts.GetTokenLookup(),
		AuthScheme:  opts.GetAuthScheme(),
	}
}

func ExtractRawTokenFromContext(c *fiber.Ctx, extractors []JWTExtractor) (string, error) {
	var raw string
	err := ErrJWTMissingOrMalformed

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Resolver == nil {
		panic("AUTH: JWT middleware configuration: Resolver is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = auth.DefaultContextKey
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = auth.DefaultAuthScheme
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		scheme := cfg.AuthScheme
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			kind, ok := auth.RejectionOf(err)
			switch {
			case ok && kind == auth.RejectionInactiveAccount:
				return c.Status(http.StatusBadRequest).JSON(fiber.Map{"detail": auth.ErrInactiveAccount.Message})
			case ok:
				c.Set(fiber.HeaderWWWAuthenticate, scheme)
				return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"detail": auth.ErrInvalidCredentials.Message})
			default:
				return c.Status(auth.StatusCode(err)).JSON(fiber.Map{"detail": http.StatusText(auth.StatusCode(err))})
			}
		}
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(c *fiber.Ctx, identity auth.Identity) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(c, identity); err != nil {
			return err
		}
	}
	return nil
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := auth.DefaultAuthScheme
	if len(authSchemes) > 0 && strings.TrimSpace(authSchemes[0]) != "" {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		//header:Authorization
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c *fiber.Ctx) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Params(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
