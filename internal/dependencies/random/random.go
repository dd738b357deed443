package random

import (
	"crypto/rand"
	"encoding/hex"
)

// Random is the entropy source behind every token the master server hands out
type Random interface {
	// Hex returns n random bytes, hex encoded (2n characters)
	Hex(n int) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Hex returns n bytes from crypto/rand as lowercase hex.
// crypto/rand aborts the process if the system entropy source fails.
func (r *CryptoRandom) Hex(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
