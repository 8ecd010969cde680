package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// refreshTokenBytes is the entropy of a raw refresh token before encoding.
const refreshTokenBytes = 48

// GenerateRefreshToken returns a cryptographically random, urlsafe-base64
// (no padding) refresh token with 48 bytes of entropy. The raw value is
// handed to the client once and only its hash is persisted.
func GenerateRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return Base64URLEncode(b), nil
}

// Base64URLEncode encodes b as urlsafe base64 with trailing padding stripped.
func Base64URLEncode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// HashValue returns a SHA-256 hash of value, hex-encoded. Used for storing
// and comparing refresh tokens and for IP audit hashing without storing the
// raw value.
func HashValue(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])
}

// HashIP hashes a client IP for audit storage. Empty input stays empty so
// absent context is distinguishable from a hashed value.
func HashIP(ip string) string {
	if ip == "" {
		return ""
	}
	return HashValue(ip)
}

// TimingSafeMatch compares two pre-hashed, fixed-format values in constant
// time. The length check short-circuits; lengths are not secret here. Not a
// substitute for password hashing.
func TimingSafeMatch(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
