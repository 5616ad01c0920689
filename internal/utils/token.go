package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// scanTokenBytes is the entropy of a scan token before encoding.
// 16 random bytes encode to a 22 character URL-safe string, enough to
// make guessing a live token impractical.
const scanTokenBytes = 16

// NewScanToken generates the opaque token embedded in a ticket's QR
// code. Tokens are URL-safe (base64url without padding) and
// case-sensitive. Uniqueness is not guaranteed here; the ticket store
// enforces it with a unique index and regenerates on collision.
func NewScanToken() (string, error) {
	b := make([]byte, scanTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
