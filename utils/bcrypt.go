package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes an ops-console credential for storage.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// ComparePassword reports whether plain matches the stored hash.
func ComparePassword(hashed string, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
