package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"errors"
)

// NewSessionToken returns entropy random bytes rendered as lowercase hex,
// twice as many characters as bytes. The token carries no structure.
func NewSessionToken(entropy int) (string, error) {
	if entropy < 32 {
		return "", errors.New("session token entropy below 32 bytes")
	}
	raw := make([]byte, entropy)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// NewTOTPSecret returns size random bytes base32-encoded without padding,
// the format authenticator apps accept.
func NewTOTPSecret(size int) (string, error) {
	if size < 20 {
		return "", errors.New("totp secret below 20 bytes")
	}
	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// NewBackupCode returns a random code of length lowercase hex characters.
// length must be even.
func NewBackupCode(length int) (string, error) {
	if length < 8 || length%2 != 0 {
		return "", errors.New("backup code length must be an even number >= 8")
	}
	raw := make([]byte, length/2)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// BackupCodeHash derives the stored hash of one backup code. The user ID
// salts the digest so identical codes held by different users do not
// collide at rest.
func BackupCodeHash(userID, canonicalCode string) [32]byte {
	return sha256.Sum256([]byte(userID + ":" + canonicalCode))
}
