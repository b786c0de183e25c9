package jwtware_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-credauth"
	"github.com/goliatone/go-credauth/middleware/jwtware"
)

type testIdentity struct {
	id       string
	username string
	active   bool
}

func (i testIdentity) ID() string           { return i.id }
func (i testIdentity) Username() string     { return i.username }
func (i testIdentity) PasswordHash() string { return "" }
func (i testIdentity) IsActive() bool       { return i.active }

type fixture struct {
	tokens   *auth.TokenService
	resolver *auth.IdentityResolver
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	signing, err := auth.NewSigningConfig([]byte("test-secret"), "HS256")
	require.NoError(t, err)

	tokens := auth.NewTokenService(signing, auth.WithTokenLogger(auth.NoopLogger()))

	users := map[string]auth.Identity{
		"alice": testIdentity{id: "1", username: "alice", active: true},
		"bob":   testIdentity{id: "2", username: "bob", active: false},
	}
	lookup := auth.UserLookupFunc(func(_ context.Context, username string) (auth.Identity, error) {
		if identity, ok := users[username]; ok {
			return identity, nil
		}
		return nil, auth.ErrIdentityNotFound
	})

	return fixture{
		tokens:   tokens,
		resolver: auth.NewIdentityResolver(tokens, lookup).WithLogger(auth.NoopLogger()),
	}
}

func (f fixture) token(t *testing.T, subject string, ttl time.Duration) string {
	t.Helper()
	token, err := f.tokens.IssueWithTTL(auth.TokenClaims{Subject: subject}, ttl)
	require.NoError(t, err)
	return token
}

func newApp(cfg jwtware.Config) *fiber.App {
	app := fiber.New()
	app.Use(jwtware.New(cfg))
	app.Get("/me", func(c *fiber.Ctx) error {
		identity, ok := auth.IdentityFromFiber(c, cfg.ContextKey)
		if !ok {
			return c.SendString("anonymous")
		}
		fromCtx, ok := auth.IdentityFromContext(c.UserContext())
		if !ok || fromCtx.Username() != identity.Username() {
			return c.Status(http.StatusInternalServerError).SendString("context mismatch")
		}
		return c.SendString(identity.Username())
	})
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, string, http.Header) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body), resp.Header
}

func detail(t *testing.T, body string) string {
	t.Helper()
	payload := map[string]string{}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	return payload["detail"]
}

func TestJWTWare_BasicHeaderExtraction(t *testing.T) {
	f := newFixture(t)
	app := newApp(jwtware.Config{Resolver: f.resolver})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, "alice", time.Hour))

	status, body, _ := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body)
}

func TestJWTWare_SchemeIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	app := newApp(jwtware.Config{Resolver: f.resolver})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer "+f.token(t, "alice", time.Hour))

	status, body, _ := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body)
}

func TestJWTWare_Rejections(t *testing.T) {
	f := newFixture(t)
	app := newApp(jwtware.Config{Resolver: f.resolver})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + f.token(t, "alice", time.Hour)},
		{"scheme only", "Bearer"},
		{"malformed token", "Bearer malformed.token.structure"},
		{"expired token", "Bearer " + f.token(t, "alice", -time.Minute)},
		{"unknown subject", "Bearer " + f.token(t, "mallory", time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			status, body, headers := do(t, app, req)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, "Bearer", headers.Get("WWW-Authenticate"))
			assert.Equal(t, "Could not validate credentials", detail(t, body))
		})
	}
}

func TestJWTWare_InactiveAccount(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "bob", time.Hour)

	app := newApp(jwtware.Config{Resolver: f.resolver})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	status, body, headers := do(t, app, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Empty(t, headers.Get("WWW-Authenticate"))
	assert.Equal(t, "Inactive user", detail(t, body))

	lenient := newApp(jwtware.Config{Resolver: f.resolver, AllowInactive: true})
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	status, body, _ = do(t, lenient, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bob", body)
}

func TestJWTWare_CustomTokenLookup(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "alice", time.Hour)

	app := newApp(jwtware.Config{
		Resolver:    f.resolver,
		TokenLookup: "query:auth_token,cookie:jwt",
		ContextKey:  "identity",
	})

	req := httptest.NewRequest(http.MethodGet, "/me?auth_token="+token, nil)
	status, body, _ := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: token})
	status, body, _ = do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	status, _, _ = do(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestJWTWare_Optional(t *testing.T) {
	f := newFixture(t)
	app := newApp(jwtware.Config{Resolver: f.resolver, Optional: true})

	status, body, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "anonymous", body)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	status, _, _ = do(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestJWTWare_FilterFunction(t *testing.T) {
	f := newFixture(t)
	app := newApp(jwtware.Config{
		Resolver: f.resolver,
		Filter: func(c *fiber.Ctx) bool {
			return c.Path() == "/me"
		},
	})

	status, body, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "anonymous", body)
}

func TestJWTWare_ValidationListeners(t *testing.T) {
	f := newFixture(t)
	var seen []string

	app := newApp(jwtware.Config{
		Resolver: f.resolver,
		ValidationListeners: []jwtware.ValidationListener{
			nil,
			func(_ *fiber.Ctx, identity auth.Identity) error {
				seen = append(seen, identity.Username())
				return nil
			},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, "alice", time.Hour))
	status, _, _ := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"alice"}, seen)

	denied := newApp(jwtware.Config{
		Resolver: f.resolver,
		ValidationListeners: []jwtware.ValidationListener{
			func(*fiber.Ctx, auth.Identity) error { return fiber.ErrForbidden },
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.Status(fiberErr.Code).SendString(fiberErr.Message)
			}
			return err
		},
	})

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, "alice", time.Hour))
	status, _, _ = do(t, denied, req)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestJWTWare_RequiresResolver(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.New(jwtware.Config{})
	})
}

func TestJWTWare_ConfigFromAuth(t *testing.T) {
	f := newFixture(t)
	opts := auth.DefaultOptions()
	opts.TokenLookup = "header:X-Session"
	opts.AuthScheme = "Token"

	app := newApp(jwtware.ConfigFromAuth(opts, f.resolver))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-Session", "Token "+f.token(t, "alice", time.Hour))
	status, body, _ := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	status, _, headers := do(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token", headers.Get("WWW-Authenticate"))
}

func TestGetExtractors(t *testing.T) {
	extractors := jwtware.GetExtractors("header:Authorization, query:token ,cookie:jwt,param:id,bogus")
	assert.Len(t, extractors, 4)

	assert.Empty(t, jwtware.GetExtractors("nonsense"))
}
