// Package cache memoizes classification results in memory and on disk.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const keyPrefix = "sentiscope:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key for s within namespace
func Key(namespace, s string) string {
	hash := sha256.Sum256([]byte(s))
	return keyPrefix + namespace + ":" + hex.EncodeToString(hash[:])
}

// fileName maps a key to a filesystem-safe name
func fileName(key string) string {
	return strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(key)
}
