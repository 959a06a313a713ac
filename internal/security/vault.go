package security

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

var (
	// ErrInvalidEncryptionSecret is returned when no usable key can be derived from the configured secret.
	ErrInvalidEncryptionSecret = errors.New("invalid encryption secret")
	// ErrDecryptionFailed is returned by Vault when an envelope cannot be opened with the derived key.
	ErrDecryptionFailed = errors.New("dedicated key decryption failed")
)

// DeriveKey turns an operator-supplied secret into a 32-byte AES key. The secret is read as
// base64 (standard, URL, and unpadded variants), then hex, then raw bytes; the first non-empty
// decode wins. Shorter results are stretched with SHA-256; longer ones are truncated.
func DeriveKey(secret string) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrInvalidEncryptionSecret
	}
	raw := decodeSecret(secret)
	switch {
	case len(raw) < KeySize:
		sum := sha256.Sum256(raw)
		raw = sum[:]
	case len(raw) > KeySize:
		raw = raw[:KeySize]
	}
	if len(raw) != KeySize {
		return nil, ErrInvalidEncryptionSecret
	}
	key := make([]byte, KeySize)
	copy(key, raw)
	return key, nil
}

var secretEncodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

func decodeSecret(secret string) []byte {
	for _, enc := range secretEncodings {
		if b, err := enc.DecodeString(secret); err == nil && len(b) > 0 {
			return b
		}
	}
	if b, err := hex.DecodeString(secret); err == nil && len(b) > 0 {
		return b
	}
	return []byte(secret)
}

// Vault holds the process-wide derived key and opens dedicated-key envelopes with it.
// It is constructed once at start-up and shared read-only.
type Vault struct {
	key []byte
}

// NewVault derives the key from secret. Returns ErrInvalidEncryptionSecret when secret is unusable.
func NewVault(secret string) (*Vault, error) {
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	return &Vault{key: key}, nil
}

// Open decrypts an envelope. Malformed envelopes return ErrMalformedEnvelope; every other
// failure, including tag mismatch, returns ErrDecryptionFailed with no detail.
func (v *Vault) Open(envelope string) (string, error) {
	if _, err := ParseEnvelope(envelope); err != nil {
		return "", err
	}
	plain, ok := Decrypt(envelope, v.key)
	if !ok {
		return "", ErrDecryptionFailed
	}
	return plain, nil
}

// Seal encrypts plaintext into a v1 envelope.
func (v *Vault) Seal(plaintext string) (string, error) {
	return Encrypt(plaintext, v.key)
}

// Fingerprint identifies the derived key in logs without revealing it.
func (v *Vault) Fingerprint() string {
	return Fingerprint(string(v.key))[:12]
}
