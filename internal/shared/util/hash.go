package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the first n hex characters of the SHA-256 of s. Logs
// use it in place of user ids and push tokens.
func Fingerprint(s string, n int) string {
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s))
	out := hex.EncodeToString(sum[:])
	if n <= 0 || n > len(out) {
		return out
	}
	return out[:n]
}
