package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashToken returns the hex encoded sha256 of arg.
// Configured tokens are only kept in this form.
func HashToken(arg string) string {
	hasher := sha256.New()
	hasher.Write([]byte(arg))
	return hex.EncodeToString(hasher.Sum(nil))
}

// TokenMatches compares a presented token against a hashed one.
// Both sides have the same length, so the comparison time does not
// depend on the presented token.
func TokenMatches(presented, hashed string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(presented)), []byte(hashed)) == 1
}
