// Package storage provides cryptographic utilities for the token store.
// It includes functions for sealing cached login passwords and hashing credentials.
package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the work factor for user password hashes.
const bcryptCost = 12

// EncryptSecret encrypts a secret using AES-256-GCM.
// The encryptionKey must be exactly 32 bytes.
// Returns hex-encoded nonce+ciphertext concatenated.
func EncryptSecret(secret string, encryptionKey []byte) ([]byte, error) {
	// Validate key size
	if len(encryptionKey) != 32 {
		return nil, ErrInvalidKey
	}

	// Create cipher (safe because key size is already validated)
	block, _ := aes.NewCipher(encryptionKey) //nolint:errcheck
	gcm, _ := cipher.NewGCM(block)           //nolint:errcheck

	// Generate random nonce
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(secret), nil)

	// Encode as hex for storage
	return []byte(hex.EncodeToString(ciphertext)), nil
}

// DecryptSecret decrypts a secret encrypted with EncryptSecret.
// The encrypted data should be hex-encoded nonce+ciphertext.
func DecryptSecret(encrypted []byte, encryptionKey []byte) (string, error) {
	// Validate key size
	if len(encryptionKey) != 32 {
		return "", ErrInvalidKey
	}

	// Decode hex
	ciphertext := make([]byte, hex.DecodedLen(len(encrypted)))
	n, err := hex.Decode(ciphertext, encrypted)
	if err != nil {
		return "", ErrDecryption
	}
	ciphertext = ciphertext[:n]

	// Create cipher (safe because key size is already validated)
	block, _ := aes.NewCipher(encryptionKey) //nolint:errcheck
	gcm, _ := cipher.NewGCM(block)           //nolint:errcheck

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrDecryption
	}

	nonce := ciphertext[:nonceSize]
	actual := ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, actual, nil)
	if err != nil {
		return "", ErrDecryption
	}

	return string(plaintext), nil
}

// DeriveTokenKey derives the 32-byte key that seals a token's cached password.
// Only a holder of the plaintext token can reproduce it; the database stores
// the token's SHA-256 hash, never the token itself.
func DeriveTokenKey(serverKey []byte, token string) []byte {
	m := hmac.New(sha256.New, serverKey)
	_, _ = m.Write([]byte(token))
	return m.Sum(nil)
}

// HashToken returns the SHA-256 hex digest used to look a token up.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// HashPassword creates a bcrypt hash of a user password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks if a password matches a bcrypt hash.
func VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
