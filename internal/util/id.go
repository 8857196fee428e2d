package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewOpaqueToken returns a 256-bit random value in hex, used for
// refresh tokens. Only its hash is ever persisted.
func NewOpaqueToken() string {
	bytes := make([]byte, 32)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
