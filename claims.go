package auth

import (
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// reservedClaims are owned by the codec and never taken from Extensions
var reservedClaims = map[string]struct{}{
	"sub": {},
	"exp": {},
	"iat": {},
	"jti": {},
	"nbf": {},
}

// TokenClaims is the payload carried by a session token
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
	ID        string
	// Extensions holds any additional claim. Reserved keys are dropped on encode.
	Extensions map[string]any
}

// Expired reports whether the claims are past their expiry at now
func (c TokenClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// Clone returns a deep enough copy: the extension map is not shared
func (c TokenClaims) Clone() TokenClaims {
	out := c
	if c.Extensions != nil {
		out.Extensions = maps.Clone(c.Extensions)
	}
	return out
}

func (c TokenClaims) mapClaims() jwt.MapClaims {
	mc := jwt.MapClaims{}
	for k, v := range c.Extensions {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		mc[k] = v
	}

	mc["sub"] = c.Subject
	mc["exp"] = jwt.NewNumericDate(c.ExpiresAt)
	mc["iat"] = jwt.NewNumericDate(c.IssuedAt)
	if c.ID != "" {
		mc["jti"] = c.ID
	}
	return mc
}

func claimsFromMap(mc jwt.MapClaims) (*TokenClaims, bool) {
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, false
	}

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, false
	}

	claims := &TokenClaims{
		Subject:   sub,
		ExpiresAt: exp.Time,
	}

	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}

	if jti, ok := mc["jti"].(string); ok {
		claims.ID = jti
	}

	for k, v := range mc {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		if claims.Extensions == nil {
			claims.Extensions = map[string]any{}
		}
		claims.Extensions[k] = v
	}

	return claims, true
}
