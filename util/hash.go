package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateNodeID creates a deterministic hash for a node based on its kind and identity.
func GenerateNodeID(kind, identity string) string {
	input := fmt.Sprintf("%s:%s", kind, identity)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}
