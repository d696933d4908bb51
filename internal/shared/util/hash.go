package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey returns a stable, filesystem-safe identifier for a user
// ID, used to namespace stored uploads.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
