package auth

import (
	"context"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// LoginService is the part of Authenticator the HTTP layer needs
type LoginService interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// LoginPayload is the form or JSON body accepted by the token endpoint
type LoginPayload struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func (p LoginPayload) GetIdentifier() string { return p.Username }
func (p LoginPayload) GetPassword() string   { return p.Password }

func (p LoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.Length(1, 150)),
		validation.Field(&p.Password, validation.Length(0, 4096)),
	)
}

// RegisterPayload is the body accepted by the registration endpoint
type RegisterPayload struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// TokenResponse is returned by a successful login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors,omitempty"`
}

// RouteAuthenticator exposes the login flow over fiber
type RouteAuthenticator struct {
	auth     LoginService
	cfg      Config
	registry AccountRegistrerer
	Logger   Logger
}

func NewHTTPAuthenticator(auther LoginService, cfg Config) *RouteAuthenticator {
	if cfg == nil {
		cfg = DefaultOptions()
	}
	_, logger := ResolveLogger("auth.http", nil, nil)
	return &RouteAuthenticator{
		auth:   auther,
		cfg:    cfg,
		Logger: logger,
	}
}

// WithRegistry enables RegisterHandler
func (a *RouteAuthenticator) WithRegistry(registry AccountRegistrerer) *RouteAuthenticator {
	a.registry = registry
	return a
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// LoginHandler exchanges a username and password for an access token
func (a *RouteAuthenticator) LoginHandler(c *fiber.Ctx) error {
	payload := LoginPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return NewValidationError(err, "invalid login payload")
	}

	if err := payload.Validate(); err != nil {
		return NewValidationError(err, "invalid login payload")
	}

	token, err := a.auth.Login(c.UserContext(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		return err
	}

	return c.JSON(TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// RegisterHandler creates a user and returns its public view
func (a *RouteAuthenticator) RegisterHandler(c *fiber.Ctx) error {
	if a.registry == nil {
		return fiber.ErrNotFound
	}

	payload := RegisterPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return NewValidationError(err, "invalid registration payload")
	}

	user, err := a.registry.RegisterUser(c.UserContext(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(ViewOf(NewIdentityFromUser(user)))
}

// MeHandler returns the identity resolved by the middleware
func (a *RouteAuthenticator) MeHandler(c *fiber.Ctx) error {
	identity, ok := a.CurrentIdentity(c)
	if !ok {
		return ErrInvalidCredentials
	}
	return c.JSON(ViewOf(identity))
}

// CurrentIdentity reads the identity the middleware stored for this request
func (a *RouteAuthenticator) CurrentIdentity(c *fiber.Ctx) (Identity, bool) {
	return IdentityFromFiber(c, a.cfg.GetContextKey())
}

// ErrorHandler renders errors as JSON. Invalid credentials get a 401 with a
// bearer challenge, inactive accounts a 400.
func (a *RouteAuthenticator) ErrorHandler(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	if kind, ok := RejectionOf(err); ok {
		a.Logger.Info("request rejected", "kind", kind, "path", c.OriginalURL())
		switch kind {
		case RejectionInactiveAccount:
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Detail: ErrInactiveAccount.Message})
		default:
			c.Set(fiber.HeaderWWWAuthenticate, a.cfg.GetAuthScheme())
			return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{Detail: ErrInvalidCredentials.Message})
		}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(ErrorResponse{Detail: fiberErr.Message})
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"HTTP error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	status := StatusCode(richErr)
	body := ErrorResponse{Detail: richErr.Message}

	switch {
	case IsValidationError(richErr):
		status = http.StatusUnprocessableEntity
		body.Errors = richErr.ValidationMap()
	case status >= http.StatusInternalServerError:
		body.Detail = http.StatusText(http.StatusInternalServerError)
	}

	return c.Status(status).JSON(body)
}
