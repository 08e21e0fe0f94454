package auth

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// TokenSealer encrypts GitHub access tokens before they are written to the users table.
//
// A GitHub token grants API access as that user, so it is never stored in plain text.
// XChaCha20-Poly1305 is an AEAD cipher: it encrypts AND authenticates, so a tampered
// ciphertext fails to open instead of decrypting to garbage. The X variant takes a
// 24-byte nonce, large enough to pick at random for every seal.
//
// The key is derived from the JWT secret with HKDF, using a distinct "info" label, so
// the same secret never serves as both HMAC key and cipher key directly.
//
// Sealed format: base64url(nonce || ciphertext || tag)
type TokenSealer struct {
	aead cipher.AEAD
}

const sealerInfo = "repohub github token v1"

// NewTokenSealer derives the sealing key from secret.
func NewTokenSealer(secret string) (*TokenSealer, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: sealer secret must be at least 16 characters")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sealerInfo)), key); err != nil {
		return nil, fmt.Errorf("auth: deriving sealer key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("auth: creating cipher: %w", err)
	}
	return &TokenSealer{aead: aead}, nil
}

// Seal encrypts plaintext. An empty plaintext seals to "" so "no token" stays empty in the DB.
func (s *TokenSealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("auth: generating nonce: %w", err)
	}

	// Seal appends to its first argument, so the result is nonce || ciphertext || tag.
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal. It fails if sealed was produced with a different secret or modified.
func (s *TokenSealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("auth: decoding sealed token: %w", err)
	}
	if len(raw) < s.aead.NonceSize()+s.aead.Overhead() {
		return "", errors.New("auth: sealed token too short")
	}

	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("auth: opening sealed token: %w", err)
	}
	return string(plaintext), nil
}
