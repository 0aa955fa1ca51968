package storage

import "errors"

var (
	// ErrInvalidKey is returned when an encryption key is not 32 bytes.
	ErrInvalidKey = errors.New("encryption key must be 32 bytes")

	// ErrDecryption is returned when decryption fails due to wrong key or corrupted data.
	ErrDecryption = errors.New("decryption failed: wrong key or corrupted data")

	// ErrDuplicate is returned when attempting to create a resource that already exists.
	ErrDuplicate = errors.New("resource already exists")

	// ErrInvalidToken is returned when no token matches the lookup.
	ErrInvalidToken = errors.New("invalid token")

	// ErrNoCachedSecret is returned when a token carries no stored login password.
	ErrNoCachedSecret = errors.New("no cached login password for token")

	// ErrInvalidCredentials is returned when a login name/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
