// Package util provides small helpers shared across packages.
package util

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// RandomHex returns a cryptographically random hex string of n bytes
// (2n characters).
func RandomHex(n int) string {
	return hex.EncodeToString(RandomBytes(n))
}
