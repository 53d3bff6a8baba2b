// Package util holds small helpers shared across the backend.
package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a prefixed 32-hex-character identifier. The prefix names
// the entity kind (comp, usr, req, ntf, ds, pol) so ids stay recognizable
// in logs and URL paths.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
