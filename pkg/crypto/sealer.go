// Package crypto seals datasource passwords so they can live in config files.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// SealedPrefix marks a sealed value. The version allows a future key or
// cipher change without guessing the format.
const SealedPrefix = "enc:v1:"

var (
	// ErrInvalidKey is returned when the sealing key is empty.
	ErrInvalidKey = errors.New("invalid sealing key: must not be empty")
	// ErrUnsealFailed is returned for malformed values, a wrong key or a
	// value sealed for a different datasource.
	ErrUnsealFailed = errors.New("unseal failed: invalid value, wrong key or wrong datasource")
)

// Sealer encrypts passwords with AES-256-GCM. The datasource name is bound as
// additional data, so a sealed value only opens for the datasource it was
// sealed for.
type Sealer struct {
	gcm cipher.AEAD
}

// NewSealer creates a Sealer from a key string.
// A base64 string decoding to exactly 32 bytes (openssl rand -base64 32) is
// used as the key directly; anything else is treated as a passphrase and
// hashed with SHA-256.
func NewSealer(keyInput string) (*Sealer, error) {
	if keyInput == "" {
		return nil, ErrInvalidKey
	}

	key := deriveKey(keyInput)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{gcm: gcm}, nil
}

func deriveKey(keyInput string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(keyInput); err == nil && len(decoded) == 32 {
		return decoded
	}
	hash := sha256.Sum256([]byte(keyInput))
	return hash[:]
}

// Seal encrypts password for datasource and returns
// "enc:v1:" + base64(nonce || ciphertext || tag).
func (s *Sealer) Seal(datasource, password string) (string, error) {
	if password == "" {
		return "", errors.New("refusing to seal an empty password")
	}

	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.gcm.Seal(nonce, nonce, []byte(password), []byte(datasource))
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal for the same datasource.
func (s *Sealer) Open(datasource, value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, SealedPrefix)
	if !ok {
		return "", fmt.Errorf("%w: missing %q prefix", ErrUnsealFailed, SealedPrefix)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrUnsealFailed)
	}

	nonceSize := s.gcm.NonceSize()
	if len(data) < nonceSize+s.gcm.Overhead() {
		return "", fmt.Errorf("%w: value too short", ErrUnsealFailed)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, []byte(datasource))
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrUnsealFailed)
	}
	return string(plaintext), nil
}

// IsSealed reports whether value carries the sealed prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}
