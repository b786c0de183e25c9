//go:build !race

package auth

// defaultBcryptCost is the work factor for hashes produced by the bcrypt fallback.
func defaultBcryptCost() int {
	return 12
}
