package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey returns the hex-encoded SHA-256 of key.
func HashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// SourceKey derives a stable cache key for data fetched from source, e.g. a
// key set URL. Keys of different sources never collide.
func SourceKey(kind, source string) string {
	return kind + ":" + HashKey(source)
}
