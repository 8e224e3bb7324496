package shared

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns prefix followed by 32 random hex characters.
func NewID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + hex.EncodeToString(b)
}
