//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// race builds hash at the library default.
func defaultBcryptCost() int {
	return bcrypt.DefaultCost
}
