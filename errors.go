package auth

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeInactiveAccount    = "INACTIVE_ACCOUNT"
	TextCodeTokenInvalid       = "TOKEN_INVALID"
	TextCodeMissingSubject     = "MISSING_SUBJECT"
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeUsernameTaken      = "USERNAME_TAKEN"
	TextCodeValidation         = "VALIDATION_FAILED"
)

// ErrInvalidCredentials is the single rejection for unknown users, wrong
// passwords, inactive accounts at login, and every token that fails to
// resolve to a live user.
var ErrInvalidCredentials = goerrors.New("Could not validate credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrInactiveAccount is returned only after a valid token resolved to an
// existing user whose account is disabled.
var ErrInactiveAccount = goerrors.New("Inactive user", goerrors.CategoryAuth).
	WithTextCode(TextCodeInactiveAccount).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenInvalid covers malformed, expired, wrongly signed and subject-less
// tokens. The codec never says which.
var ErrTokenInvalid = goerrors.New("invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingSubject is returned when issuing a token without a subject
var ErrMissingSubject = goerrors.New("token claims require a subject", goerrors.CategoryBadInput).
	WithTextCode(TextCodeMissingSubject).
	WithCode(goerrors.CodeBadRequest)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUsernameTaken is returned when registering a duplicated username
var ErrUsernameTaken = goerrors.New("username already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(goerrors.CodeConflict)

// ErrSchemeVerifyOnly is returned by schemes kept only to check legacy hashes
var ErrSchemeVerifyOnly = goerrors.New("hash scheme is verify only", goerrors.CategoryInternal)

// ErrUnsupportedHash is returned when a scheme cannot parse a stored hash
var ErrUnsupportedHash = goerrors.New("unsupported or corrupt password hash", goerrors.CategoryInternal)

// ErrUnsupportedSigningMethod is returned for algorithms other than HS256/384/512
var ErrUnsupportedSigningMethod = goerrors.New("unsupported token signing method", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// RejectionKind tags the two outcomes callers are allowed to tell apart.
type RejectionKind string

const (
	RejectionInvalidCredentials RejectionKind = "invalid_credentials"
	RejectionInactiveAccount    RejectionKind = "inactive_account"
)

// RejectionOf reports whether err is an authentication rejection and which one.
func RejectionOf(err error) (RejectionKind, bool) {
	if err == nil {
		return "", false
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return "", false
	}

	switch richErr.TextCode {
	case TextCodeInvalidCredentials, TextCodeTokenInvalid:
		return RejectionInvalidCredentials, true
	case TextCodeInactiveAccount:
		return RejectionInactiveAccount, true
	}
	return "", false
}

// StatusCode returns the HTTP status the transport layer should use for err.
func StatusCode(err error) int {
	kind, ok := RejectionOf(err)
	if ok {
		switch kind {
		case RejectionInactiveAccount:
			return http.StatusBadRequest
		default:
			return http.StatusUnauthorized
		}
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code != 0 {
		return richErr.Code
	}
	return http.StatusInternalServerError
}

// ErrMismatchedHashAndPassword is returned when a password does not match its stored hash
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithTextCode("PASSWORD_MISMATCH").
	WithCode(goerrors.CodeUnauthorized)

// NewValidationError wraps err as a validation failure. Field errors from
// ozzo-validation are available through ValidationMap.
func NewValidationError(err error, message string) error {
	if err == nil {
		return nil
	}

	return goerrors.FromOzzoValidation(err, message).
		WithTextCode(TextCodeValidation).
		WithCode(http.StatusUnprocessableEntity)
}

// IsValidationError reports whether err was produced by NewValidationError
func IsValidationError(err error) bool {
	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.TextCode == TextCodeValidation
}

// IsUsernameTaken reports whether err is a duplicate username failure
func IsUsernameTaken(err error) bool {
	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.TextCode == TextCodeUsernameTaken
}
