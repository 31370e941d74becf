package cache

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key generates a store key by hashing the components.
// The key format is: prefix:hash(parts...)
func Key(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// versionHasher produces artifact digests seeded with a version prefix.
type versionHasher struct {
	seed []byte
}

func newVersionHasher(version string) versionHasher {
	return versionHasher{seed: []byte("boxdeck-" + version + "/")}
}

func (v versionHasher) sum(payload []byte) string {
	h := sha1.New()
	h.Write(v.seed)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// ArtifactName returns the file name of the artifact for payload and kind
// under the given version.
func ArtifactName(version string, payload []byte, kind string) string {
	return fileName(newVersionHasher(version).sum(payload), kind)
}

func fileName(digest, kind string) string {
	return "cache." + digest + "." + kind
}
