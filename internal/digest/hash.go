package digest

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Equal performs constant-time comparison of two hex-encoded digests.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// SHA256Hex computes the SHA-256 of data as lowercase hex.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// XXH64 returns the xxhash64 of data.
func XXH64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// XXH64Hex returns the xxhash64 of data as 16 lowercase hex digits.
func XXH64Hex(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
