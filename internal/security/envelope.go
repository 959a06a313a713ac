package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	envelopeSegments = 5
	envelopeAlg      = "gcm"
	envelopeVersion  = "v1"
	gcmNonceSize     = 12
	gcmTagSize       = 16
)

// ErrMalformedEnvelope is returned when a stored value is not a <version>:gcm:<iv>:<tag>:<ciphertext> envelope.
var ErrMalformedEnvelope = errors.New("malformed dedicated key envelope")

// Envelope is the parsed, still-encoded form of a stored dedicated key.
type Envelope struct {
	Version    string
	IV         string
	Tag        string
	Ciphertext string
}

// ParseEnvelope splits s into its segments without decoding or decrypting anything.
// The version segment may be empty.
func ParseEnvelope(s string) (Envelope, error) {
	parts := strings.Split(s, ":")
	if len(parts) != envelopeSegments || parts[1] != envelopeAlg {
		return Envelope{}, ErrMalformedEnvelope
	}
	return Envelope{
		Version:    parts[0],
		IV:         parts[2],
		Tag:        parts[3],
		Ciphertext: parts[4],
	}, nil
}

// String re-assembles the envelope.
func (e Envelope) String() string {
	return strings.Join([]string{e.Version, envelopeAlg, e.IV, e.Tag, e.Ciphertext}, ":")
}

// Decrypt opens an AES-256-GCM envelope with key. The IV may be any non-zero length; envelopes
// written elsewhere commonly use 16 bytes. Any failure yields ("", false) and partial plaintext
// is never returned.
func Decrypt(envelope string, key []byte) (plaintext string, ok bool) {
	defer func() {
		if recover() != nil {
			plaintext, ok = "", false
		}
	}()

	env, err := ParseEnvelope(envelope)
	if err != nil || len(key) != KeySize {
		return "", false
	}
	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil || len(iv) == 0 {
		return "", false
	}
	tag, err := base64.StdEncoding.DecodeString(env.Tag)
	if err != nil || len(tag) != gcmTagSize {
		return "", false
	}
	ct, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return "", false
	}

	aead, err := newGCM(key, len(iv))
	if err != nil {
		return "", false
	}
	sealed := make([]byte, 0, len(ct)+len(tag))
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)
	out, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", false
	}
	return string(out), true
}

// Encrypt seals plaintext with a random 12-byte IV and returns a v1 envelope.
func Encrypt(plaintext string, key []byte) (string, error) {
	if len(key) != KeySize {
		return "", ErrInvalidEncryptionSecret
	}
	aead, err := newGCM(key, gcmNonceSize)
	if err != nil {
		return "", err
	}
	iv := make([]byte, gcmNonceSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-gcmTagSize], sealed[len(sealed)-gcmTagSize:]
	return Envelope{
		Version:    envelopeVersion,
		IV:         base64.StdEncoding.EncodeToString(iv),
		Tag:        base64.StdEncoding.EncodeToString(tag),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
	}.String(), nil
}

// newGCM builds an AEAD with the standard 16-byte tag for the given nonce size.
func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if nonceSize == gcmNonceSize {
		return cipher.NewGCM(block)
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}
