// Package auth verifies username and password credentials and issues short
// lived signed session tokens (HMAC JWTs) that are later resolved back into
// the user they were issued for.
//
// Passwords:
//   - PasswordHasher walks an ordered list of HashScheme values. New hashes use
//     the first scheme that can hash (pbkdf2-sha256 by default); stored hashes
//     are checked by whichever scheme recognizes them, including the legacy
//     bcrypt and bcrypt-sha256 formats. Verify never errors, a corrupt hash is
//     just a mismatch.
//
// Tokens:
//   - TokenService signs TokenClaims with a SigningConfig and decodes them back.
//     Any decode failure (bad signature, expiry, missing subject) is reported
//     as ErrTokenInvalid with no further detail.
//
// Login and resolution:
//   - Authenticator checks credentials against a UserLookup and mints access
//     tokens. Unknown users, wrong passwords and inactive accounts all return
//     ErrInvalidCredentials.
//   - IdentityResolver turns a bearer token into an Identity. Callers can only
//     tell ErrInvalidCredentials apart from ErrInactiveAccount, see RejectionOf.
//
// Activity sinks:
//   - ActivitySink receives login, registration and status change events.
//     Sinks run best effort, their errors are logged and never fail a login.
package auth
