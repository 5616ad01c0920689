package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes an account password. Cost comes from
// configuration so deployments can tune hashing time; bcrypt clamps
// out-of-range values itself.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored hash. Any
// comparison failure counts as a mismatch; login answers the same
// 401 either way.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
