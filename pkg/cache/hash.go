package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashKey derives a stage-prefixed cache key from its parts: input-file
// hashes, layer signatures, and option structs. Parts are JSON-encoded
// before hashing so an added option field automatically changes every key
// it participates in. Format: prefix:hex(sha256(parts)).
func hashKey(prefix string, parts ...interface{}) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, part := range parts {
		_ = enc.Encode(part)
	}
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(h.Sum(nil)))
}

// Hash computes the SHA-256 of raw input bytes — feature collections and
// network snapshots — as a 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
