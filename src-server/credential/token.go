package credential

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// 32 bytes of entropy per token
const tokenByteLen = 32

// NewToken returns a URL-safe opaque token from a cryptographically strong
// random source. Collisions are treated as negligible; the attendees table
// still carries a unique constraint as a backstop.
func NewToken() (string, error) {
	raw := make([]byte, tokenByteLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("NewToken: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
