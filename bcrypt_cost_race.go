//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// race builds hash with the minimum cost, the detector multiplies bcrypt time
func passwordHashCost() int {
	return bcrypt.MinCost
}
