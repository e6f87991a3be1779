package common

import (
	"crypto/rand"
	"encoding/base64"
)

// MakeRandToken returns size random bytes in unpadded URL-safe base64, suitable
// for token identifiers that travel in headers and JSON.
func MakeRandToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// WipeByteArray zeroes b in place. Used for passwords read from the terminal.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
