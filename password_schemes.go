package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// MaxBcryptPasswordBytes is the longest input bcrypt looks at
	MaxBcryptPasswordBytes = 72
	// DefaultPBKDF2Rounds is the iteration count for new pbkdf2-sha256 hashes
	DefaultPBKDF2Rounds = 29000

	pbkdf2SaltSize  = 16
	pbkdf2KeyLen    = 32
	pbkdf2MaxRounds = 10_000_000

	bcryptSaltLen   = 22
	bcryptDigestLen = 31

	pbkdf2SHA256Ident = "$pbkdf2-sha256$"
	bcryptSHA256Ident = "$bcrypt-sha256$"
)

// truncatePassword cuts the UTF-8 bytes of password at MaxBcryptPasswordBytes.
// The cut may land inside a multi-byte rune; bcrypt only sees bytes.
func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > MaxBcryptPasswordBytes {
		b = b[:MaxBcryptPasswordBytes]
	}
	return b
}

// ab64 is the modular crypt flavour of base64: standard alphabet, no padding, '.'
// instead of '+'.
func ab64Encode(b []byte) string {
	return strings.ReplaceAll(base64.RawStdEncoding.EncodeToString(b), "+", ".")
}

func ab64Decode(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.ReplaceAll(s, ".", "+"))
}

type pbkdf2SHA256Scheme struct {
	rounds int
	rand   io.Reader
}

// NewPBKDF2SHA256Scheme returns the primary scheme. Hashes use the
// modular crypt format $pbkdf2-sha256$<rounds>$<salt>$<checksum>.
func NewPBKDF2SHA256Scheme(rounds int) HashScheme {
	if rounds <= 0 {
		rounds = DefaultPBKDF2Rounds
	}
	return &pbkdf2SHA256Scheme{rounds: rounds, rand: rand.Reader}
}

func (s *pbkdf2SHA256Scheme) Name() string { return "pbkdf2-sha256" }

func (s *pbkdf2SHA256Scheme) Identify(hash string) bool {
	return strings.HasPrefix(hash, pbkdf2SHA256Ident)
}

func (s *pbkdf2SHA256Scheme) TryHash(password string) (string, error) {
	salt := make([]byte, pbkdf2SaltSize)
	if _, err := io.ReadFull(s.rand, salt); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate salt")
	}

	key := pbkdf2.Key([]byte(password), salt, s.rounds, pbkdf2KeyLen, sha256.New)

	return fmt.Sprintf("%s%d$%s$%s", pbkdf2SHA256Ident, s.rounds, ab64Encode(salt), ab64Encode(key)), nil
}

func (s *pbkdf2SHA256Scheme) TryVerify(password, hash string) (bool, error) {
	parts := strings.Split(strings.TrimPrefix(hash, pbkdf2SHA256Ident), "$")
	if len(parts) != 3 {
		return false, ErrUnsupportedHash
	}

	rounds, err := strconv.Atoi(parts[0])
	if err != nil || rounds <= 0 || rounds > pbkdf2MaxRounds {
		return false, ErrUnsupportedHash
	}

	salt, err := ab64Decode(parts[1])
	if err != nil {
		return false, ErrUnsupportedHash
	}

	checksum, err := ab64Decode(parts[2])
	if err != nil || len(checksum) == 0 {
		return false, ErrUnsupportedHash
	}

	candidate := pbkdf2.Key([]byte(password), salt, rounds, len(checksum), sha256.New)

	return subtle.ConstantTimeCompare(candidate, checksum) == 1, nil
}

type bcryptScheme struct{}

// NewBcryptScheme returns the verify only scheme for raw $2a$/$2b$/$2y$ hashes
func NewBcryptScheme() HashScheme {
	return bcryptScheme{}
}

func (bcryptScheme) Name() string { return "bcrypt" }

func (bcryptScheme) Identify(hash string) bool {
	return isBcryptHash(hash)
}

func (bcryptScheme) TryHash(string) (string, error) {
	return "", ErrSchemeVerifyOnly
}

func (bcryptScheme) TryVerify(password, hash string) (bool, error) {
	return compareBcrypt([]byte(hash), []byte(password))
}

type bcryptSHA256Scheme struct{}

// NewBcryptSHA256Scheme returns the verify only scheme for
// bcrypt_sha256 hashes, formats v1 and v2.
func NewBcryptSHA256Scheme() HashScheme {
	return bcryptSHA256Scheme{}
}

func (bcryptSHA256Scheme) Name() string { return "bcrypt-sha256" }

func (bcryptSHA256Scheme) Identify(hash string) bool {
	return strings.HasPrefix(hash, bcryptSHA256Ident)
}

func (bcryptSHA256Scheme) TryHash(string) (string, error) {
	return "", ErrSchemeVerifyOnly
}

func (bcryptSHA256Scheme) TryVerify(password, hash string) (bool, error) {
	parts := strings.Split(strings.TrimPrefix(hash, bcryptSHA256Ident), "$")
	if len(parts) != 3 {
		return false, ErrUnsupportedHash
	}

	config, salt, digest := parts[0], parts[1], parts[2]
	if len(salt) != bcryptSaltLen || len(digest) != bcryptDigestLen {
		return false, ErrUnsupportedHash
	}

	version, ident, rounds, err := parseBcryptSHA256Config(config)
	if err != nil {
		return false, err
	}

	var key []byte
	switch version {
	case 1:
		sum := sha256.Sum256([]byte(password))
		key = sum[:]
	case 2:
		mac := hmac.New(sha256.New, []byte(salt))
		mac.Write([]byte(password))
		key = mac.Sum(nil)
	}

	encodedKey := base64.StdEncoding.EncodeToString(key)
	inner := fmt.Sprintf("$%s$%02d$%s%s", ident, rounds, salt, digest)

	return compareBcrypt([]byte(inner), []byte(encodedKey))
}

// parseBcryptSHA256Config reads "2a,12" (v1) or "v=2,t=2b,r=12" (v2).
func parseBcryptSHA256Config(config string) (version int, ident string, rounds int, err error) {
	fields := strings.Split(config, ",")

	if !strings.HasPrefix(config, "v=") {
		if len(fields) != 2 {
			return 0, "", 0, ErrUnsupportedHash
		}
		rounds, err = strconv.Atoi(fields[1])
		if err != nil {
			return 0, "", 0, ErrUnsupportedHash
		}
		return 1, fields[0], rounds, validBcryptParams(fields[0], rounds)
	}

	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return 0, "", 0, ErrUnsupportedHash
		}
		switch key {
		case "v":
			version, err = strconv.Atoi(value)
		case "t":
			ident = value
		case "r":
			rounds, err = strconv.Atoi(value)
		default:
			return 0, "", 0, ErrUnsupportedHash
		}
		if err != nil {
			return 0, "", 0, ErrUnsupportedHash
		}
	}

	if version != 2 {
		return 0, "", 0, ErrUnsupportedHash
	}
	return version, ident, rounds, validBcryptParams(ident, rounds)
}

func validBcryptParams(ident string, rounds int) error {
	switch ident {
	case "2a", "2b", "2y":
	default:
		return ErrUnsupportedHash
	}
	if rounds < bcrypt.MinCost || rounds > bcrypt.MaxCost {
		return ErrUnsupportedHash
	}
	return nil
}

type truncatingBcryptScheme struct {
	cost int
}

// NewTruncatingBcryptScheme returns the last resort scheme: it truncates the
// password to MaxBcryptPasswordBytes and runs plain bcrypt with a fresh salt.
func NewTruncatingBcryptScheme(cost int) HashScheme {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return truncatingBcryptScheme{cost: cost}
}

func (truncatingBcryptScheme) Name() string { return "bcrypt-truncated" }

func (truncatingBcryptScheme) Identify(hash string) bool {
	return isBcryptHash(hash)
}

func (s truncatingBcryptScheme) TryHash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword(truncatePassword(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (truncatingBcryptScheme) TryVerify(password, hash string) (bool, error) {
	return compareBcrypt([]byte(hash), truncatePassword(password))
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}

func compareBcrypt(hash, password []byte) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hash, password)
	if err == nil {
		return true, nil
	}
	if goerrors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
