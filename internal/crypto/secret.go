package crypto

import (
	"crypto/rand"
	"encoding/base64"
)

// NewGeneratedPassword returns a random plaintext password for
// admin-created accounts. It is returned to the caller exactly once;
// only the hash is stored.
func NewGeneratedPassword() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
