package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const rawTokenBytes = 32

// Generate creates a new access token secret. It returns the raw token, which
// is shown to the caller exactly once, and its persisted hash. The raw token
// carries 256 bits of entropy in URL-safe encoding.
func Generate() (raw, hash string, err error) {
	var buf [rawTokenBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(buf[:])
	return raw, Hash(raw), nil
}

// Hash computes the stored lookup key for a raw token: the lowercase hex
// SHA-256 digest of the token's UTF-8 bytes. No salt and no HMAC; the token's
// own entropy is the security margin. This encoding is a compatibility
// constant and must not change.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
