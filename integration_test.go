package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-credauth"
	"github.com/goliatone/go-credauth/middleware/jwtware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app      *fiber.App
	provider *auth.UserProvider
	users    auth.Users
	resolver *auth.IdentityResolver
	clock    *testClock
	sink     *recordingSink
}

func newTestServer(t *testing.T) testServer {
	t.Helper()

	opts := auth.DefaultOptions()
	opts.SigningKey = "integration-secret"
	opts.AccessTokenExpireMinutes = 60

	clock := newTestClock()
	sink := &recordingSink{}
	hasher := newTestHasher()

	users := setupUsersRepo(t)
	provider := auth.NewUserProvider(users, hasher).
		WithLogger(auth.NoopLogger()).
		WithActivitySink(sink)

	signing, err := auth.NewSigningConfigFromConfig(opts)
	require.NoError(t, err)
	tokens := auth.NewTokenService(signing,
		auth.WithClock(clock.Now),
		auth.WithTokenLogger(auth.NoopLogger()),
	)

	authenticator := auth.NewAuthenticator(provider, hasher, tokens, opts).
		WithLogger(auth.NoopLogger()).
		WithActivitySink(sink)
	resolver := auth.NewIdentityResolver(tokens, provider).WithLogger(auth.NoopLogger())

	routes := auth.NewHTTPAuthenticator(authenticator, opts).
		WithRegistry(provider).
		WithLogger(auth.NoopLogger())

	app := fiber.New(fiber.Config{ErrorHandler: routes.ErrorHandler})
	mwCfg := jwtware.ConfigFromAuth(opts, resolver)
	mwCfg.ErrorHandler = routes.ErrorHandler

	app.Post("/auth/token", routes.LoginHandler)
	app.Post("/auth/register", routes.RegisterHandler)
	app.Get("/users/me", jwtware.New(mwCfg), routes.MeHandler)

	return testServer{
		app:      app,
		provider: provider,
		users:    users,
		resolver: resolver,
		clock:    clock,
		sink:     sink,
	}
}

func (s testServer) login(t *testing.T, username, password string) httpResult {
	return send(t, s.app, formRequest("/auth/token", url.Values{
		"username": {username},
		"password": {password},
	}))
}

func (s testServer) me(t *testing.T, token string) httpResult {
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return send(t, s.app, req)
}

func TestIntegration_RegisterLoginMe(t *testing.T) {
	s := newTestServer(t)

	res := send(t, s.app, jsonRequest("/auth/register", `{"username":"alice","password":"hunter2"}`))
	require.Equal(t, http.StatusCreated, res.status)

	res = s.login(t, "alice", "hunter2")
	require.Equal(t, http.StatusOK, res.status)
	token, _ := res.body["access_token"].(string)
	require.NotEmpty(t, token)

	res = s.me(t, token)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "alice", res.body["username"])

	s.clock.Advance(time.Hour + time.Second)
	res = s.me(t, token)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Could not validate credentials", res.body["detail"])
}

func TestIntegration_LoginFailuresLookAlike(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.provider.RegisterUser(ctx, "alice", "", "hunter2")
	require.NoError(t, err)
	_, err = s.provider.RegisterUser(ctx, "bob", "", "hunter2")
	require.NoError(t, err)
	_, err = s.provider.SetActive(ctx, auth.ActorRef{Type: "system"}, "bob", false)
	require.NoError(t, err)

	attempts := [][2]string{
		{"alice", "wrong"},
		{"mallory", "hunter2"},
		{"bob", "hunter2"},
		{"Alice", "hunter2"},
	}

	var first httpResult
	for i, attempt := range attempts {
		res := s.login(t, attempt[0], attempt[1])
		assert.Equal(t, http.StatusUnauthorized, res.status, attempt[0])
		assert.Equal(t, "Bearer", res.headers.Get(fiber.HeaderWWWAuthenticate))
		if i == 0 {
			first = res
			continue
		}
		assert.Equal(t, first.body, res.body, attempt[0])
	}
}

func TestIntegration_DeactivatedAfterLogin(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.provider.RegisterUser(ctx, "alice", "", "hunter2")
	require.NoError(t, err)

	res := s.login(t, "alice", "hunter2")
	require.Equal(t, http.StatusOK, res.status)
	token := res.body["access_token"].(string)

	_, err = s.provider.SetActive(ctx, auth.ActorRef{ID: "ops", Type: "admin"}, "alice", false)
	require.NoError(t, err)

	res = s.me(t, token)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Inactive user", res.body["detail"])
	assert.Empty(t, res.headers.Get(fiber.HeaderWWWAuthenticate))

	res = s.login(t, "alice", "hunter2")
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestIntegration_DeletedAfterLogin(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	alice, err := s.provider.RegisterUser(ctx, "alice", "", "hunter2")
	require.NoError(t, err)

	res := s.login(t, "alice", "hunter2")
	require.Equal(t, http.StatusOK, res.status)
	token := res.body["access_token"].(string)

	garbage := s.me(t, "not-a-token")
	require.Equal(t, http.StatusUnauthorized, garbage.status)

	require.NoError(t, s.users.Delete(ctx, alice.ID))

	_, err = s.resolver.Resolve(ctx, token)
	assert.Same(t, auth.ErrInvalidCredentials, err)

	res = s.me(t, token)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Bearer", res.headers.Get(fiber.HeaderWWWAuthenticate))
	assert.Equal(t, garbage.body, res.body)
}

func TestIntegration_ActivityTrail(t *testing.T) {
	s := newTestServer(t)

	send(t, s.app, jsonRequest("/auth/register", `{"username":"alice","password":"hunter2"}`))
	s.login(t, "alice", "hunter2")
	s.login(t, "alice", "nope")

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventUserRegistered,
		auth.ActivityEventLoginSuccess,
		auth.ActivityEventLoginFailure,
	}, s.sink.types())
}
