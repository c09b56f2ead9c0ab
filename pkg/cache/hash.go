package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// LayoutKeyOpts are the options that change the computed layout.
type LayoutKeyOpts struct {
	ProjectDir string `json:"project_dir"`
	DirName    string `json:"dir_name"`
	Dev        string `json:"dev"`
	Conflict   string `json:"conflict"`
}

// layoutKeyVersion is bumped whenever the stored layout document changes shape.
const layoutKeyVersion = "v1"

// LayoutKey returns the cache key of a layout plan computed from the given
// lockfile and installation table contents.
func LayoutKey(lockHash, installHash string, opts LayoutKeyOpts) string {
	return hashKey("layout:"+layoutKeyVersion, lockHash, installHash, opts)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
