package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest identifies a log buffer in batch outcomes and log lines.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
