package auth

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// HashScheme is one password hashing backend in the fallback chain.
type HashScheme interface {
	// Name is the scheme identifier, e.g. "pbkdf2-sha256"
	Name() string
	// Identify reports whether hash was produced by this scheme
	Identify(hash string) bool
	// TryHash returns ErrSchemeVerifyOnly for legacy schemes
	TryHash(password string) (string, error)
	// TryVerify returns an error when the scheme could not reach a verdict
	TryVerify(password, hash string) (bool, error)
}

// PasswordHasher hashes with the first scheme that succeeds and verifies with
// whichever scheme recognizes the stored hash. When everything else fails it
// falls back to bcrypt over the password truncated to MaxBcryptPasswordBytes.
type PasswordHasher struct {
	schemes  []HashScheme
	fallback HashScheme
	logger   Logger
}

var _ PasswordAuthenticator = (*PasswordHasher)(nil)

type hasherOptions struct {
	schemes      []HashScheme
	bcryptCost   int
	pbkdf2Rounds int
	logger       Logger
}

// HasherOption configures a PasswordHasher
type HasherOption func(*hasherOptions)

// WithSchemes replaces the default scheme chain. Order is priority.
func WithSchemes(schemes ...HashScheme) HasherOption {
	return func(o *hasherOptions) {
		o.schemes = append([]HashScheme(nil), schemes...)
	}
}

// WithBcryptCost sets the cost used by the truncating bcrypt fallback
func WithBcryptCost(cost int) HasherOption {
	return func(o *hasherOptions) {
		o.bcryptCost = cost
	}
}

// WithPBKDF2Rounds sets the iteration count for new pbkdf2-sha256 hashes
func WithPBKDF2Rounds(rounds int) HasherOption {
	return func(o *hasherOptions) {
		o.pbkdf2Rounds = rounds
	}
}

// WithHasherLogger sets the logger used to report scheme failures
func WithHasherLogger(logger Logger) HasherOption {
	return func(o *hasherOptions) {
		o.logger = logger
	}
}

// NewPasswordHasher returns a hasher with the chain pbkdf2-sha256 (hash and
// verify), bcrypt-sha256 and bcrypt (verify only).
func NewPasswordHasher(opts ...HasherOption) *PasswordHasher {
	o := &hasherOptions{
		bcryptCost:   defaultBcryptCost(),
		pbkdf2Rounds: DefaultPBKDF2Rounds,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	schemes := o.schemes
	if schemes == nil {
		schemes = []HashScheme{
			NewPBKDF2SHA256Scheme(o.pbkdf2Rounds),
			NewBcryptSHA256Scheme(),
			NewBcryptScheme(),
		}
	}

	_, logger := ResolveLogger("auth.password_hasher", nil, o.logger)

	return &PasswordHasher{
		schemes:  schemes,
		fallback: NewTruncatingBcryptScheme(o.bcryptCost),
		logger:   logger,
	}
}

// Hash produces a self describing hash for password. It accepts any string;
// an error means not even the fallback could generate a salt.
func (h *PasswordHasher) Hash(password string) (string, error) {
	for _, scheme := range h.schemes {
		hashed, err := safeHash(scheme, password)
		if err == nil && hashed != "" {
			return hashed, nil
		}
		if err != nil && !goerrors.Is(err, ErrSchemeVerifyOnly) {
			h.logger.Warn("password scheme failed to hash, trying next", "scheme", scheme.Name(), "error", err)
		}
	}

	hashed, err := safeHash(h.fallback, password)
	if err != nil {
		h.logger.Error("password fallback failed to hash", "error", err)
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}
	return hashed, nil
}

// Verify reports whether password matches hash. It never errors: a corrupt
// hash, an unknown scheme or a failing backend all end in false.
func (h *PasswordHasher) Verify(password, hash string) bool {
	for _, scheme := range h.schemes {
		if !scheme.Identify(hash) {
			continue
		}

		ok, err := safeVerify(scheme, password, hash)
		if err == nil {
			return ok
		}
		h.logger.Debug("password scheme failed to verify", "scheme", scheme.Name(), "error", err)
	}

	ok, err := safeVerify(h.fallback, password, hash)
	if err != nil {
		h.logger.Debug("password fallback failed to verify", "error", err)
		return false
	}
	return ok
}

// HashPassword satisfies PasswordAuthenticator
func (h *PasswordHasher) HashPassword(password string) (string, error) {
	return h.Hash(password)
}

// ComparePasswordAndHash satisfies PasswordAuthenticator
func (h *PasswordHasher) ComparePasswordAndHash(password, hash string) error {
	if !h.Verify(password, hash) {
		return ErrMismatchedHashAndPassword
	}
	return nil
}

func safeHash(scheme HashScheme, password string) (hashed string, err error) {
	defer func() {
		if r := recover(); r != nil {
			hashed = ""
			err = goerrors.New(fmt.Sprintf("hash scheme %s panicked: %v", scheme.Name(), r), goerrors.CategoryInternal)
		}
	}()
	return scheme.TryHash(password)
}

func safeVerify(scheme HashScheme, password, hash string) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = goerrors.New(fmt.Sprintf("hash scheme %s panicked: %v", scheme.Name(), r), goerrors.CategoryInternal)
		}
	}()
	return scheme.TryVerify(password, hash)
}

var defaultHasher = NewPasswordHasher()

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	return defaultHasher.Hash(password)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	return defaultHasher.ComparePasswordAndHash(password, hash)
}

// RandomPasswordHash is a temporary password
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
