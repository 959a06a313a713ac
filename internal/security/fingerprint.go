package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a hex SHA-256 of value. Used to identify configured secrets
// (client config, derived key) in logs without logging them.
func Fingerprint(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])
}
