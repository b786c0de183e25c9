package auth_test

import (
	"context"
	"time"

	auth "github.com/goliatone/go-credauth"
	"github.com/stretchr/testify/mock"
)

// MockUserLookup implements auth.UserLookup
type MockUserLookup struct {
	mock.Mock
}

func (m *MockUserLookup) FindByUsername(ctx context.Context, username string) (auth.Identity, error) {
	args := m.Called(ctx, username)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Error(1)
}

// MockTokenIssuer implements auth.TokenIssuer
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(claims auth.TokenClaims) (string, error) {
	args := m.Called(claims)
	return args.String(0), args.Error(1)
}

func (m *MockTokenIssuer) IssueWithTTL(claims auth.TokenClaims, ttl time.Duration) (string, error) {
	args := m.Called(claims, ttl)
	return args.String(0), args.Error(1)
}

// MockLoginService implements auth.LoginService
type MockLoginService struct {
	mock.Mock
}

func (m *MockLoginService) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

// MockActivitySink implements auth.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event auth.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockIdentity implements auth.Identity for testing
type MockIdentity struct {
	id       string
	username string
	hash     string
	active   bool
}

func (m MockIdentity) ID() string           { return m.id }
func (m MockIdentity) Username() string     { return m.username }
func (m MockIdentity) PasswordHash() string { return m.hash }
func (m MockIdentity) IsActive() bool       { return m.active }

// memoryUsers is a map backed UserLookup
type memoryUsers map[string]auth.Identity

func (u memoryUsers) FindByUsername(_ context.Context, username string) (auth.Identity, error) {
	identity, ok := u[username]
	if !ok {
		return nil, auth.ErrIdentityNotFound
	}
	return identity, nil
}

type recordingSink struct {
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []auth.ActivityEventType {
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}
