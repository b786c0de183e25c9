package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-errors"
)

// AccountRegistrerer is the interface we need to handle new user registrations
type AccountRegistrerer interface {
	RegisterUser(ctx context.Context, username, email, password string) (*User, error)
}

// UserProvider exposes the Users store as a UserLookup and handles
// registration and activation.
type UserProvider struct {
	store        Users
	hasher       PasswordAuthenticator
	logger       Logger
	provider     LoggerProvider
	activitySink ActivitySink
}

var (
	_ UserLookup         = (*UserProvider)(nil)
	_ AccountRegistrerer = (*UserProvider)(nil)
)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store Users, hasher PasswordAuthenticator) *UserProvider {
	if hasher == nil {
		hasher = defaultHasher
	}
	loggerProvider, logger := ResolveLogger("auth.user_provider", nil, nil)
	return &UserProvider{
		store:        store,
		hasher:       hasher,
		logger:       logger,
		provider:     loggerProvider,
		activitySink: noopActivitySink{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.provider, u.logger = ResolveLogger("auth.user_provider", u.provider, l)
	return u
}

// WithLoggerProvider overrides the logger provider used by the user provider.
func (u *UserProvider) WithLoggerProvider(provider LoggerProvider) *UserProvider {
	u.provider, u.logger = ResolveLogger("auth.user_provider", provider, u.logger)
	return u
}

// WithActivitySink configures where registration and status events go
func (u *UserProvider) WithActivitySink(sink ActivitySink) *UserProvider {
	u.activitySink = normalizeActivitySink(sink)
	return u
}

// FindByUsername satisfies UserLookup
func (u *UserProvider) FindByUsername(ctx context.Context, username string) (Identity, error) {
	user, err := u.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user")
	}
	return NewIdentityFromUser(user), nil
}

// RegistrationRequest is the input accepted by RegisterUser
type RegistrationRequest struct {
	Username string
	Email    string
	Password string
}

func (r RegistrationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username,
			validation.Required,
			validation.Length(1, 150),
			validation.By(noSurroundingSpace),
		),
		validation.Field(&r.Email, validation.Length(0, 254), is.Email),
		validation.Field(&r.Password, validation.Length(0, 4096)),
	)
}

// RegisterUser creates an active user with a hashed password. Empty
// passwords are accepted here; policy belongs to the caller.
func (u *UserProvider) RegisterUser(ctx context.Context, username, email, password string) (*User, error) {
	req := RegistrationRequest{Username: username, Email: email, Password: password}
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err, "invalid registration payload")
	}

	hash, err := u.hasher.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	user, err := u.store.Create(ctx, &User{
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		Active:         true,
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		u.logger.Error("failed to register user", "username", username, "error", err)
		return nil, err
	}

	u.logger.Info("user registered", "username", username, "user_id", user.ID.String())

	recordActivity(ctx, u.activitySink, u.logger, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		Username:  user.Username,
	})

	return user, nil
}

// SetActive enables or disables the account for username
func (u *UserProvider) SetActive(ctx context.Context, actor ActorRef, username string, active bool) (*User, error) {
	user, err := u.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if user.Active == active {
		return user, nil
	}

	updated, err := u.store.SetActive(ctx, user.ID, active)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, u.activitySink, u.logger, ActivityEvent{
		EventType: ActivityEventUserStatusChanged,
		Actor:     actor,
		UserID:    updated.ID.String(),
		Username:  updated.Username,
		Metadata: map[string]any{
			"from_active": user.Active,
			"to_active":   updated.Active,
		},
	})

	return updated, nil
}

func noSurroundingSpace(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) != s {
		return errors.New("must not start or end with whitespace", errors.CategoryValidation)
	}
	return nil
}
