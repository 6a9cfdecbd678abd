package distwalk

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// contentHash returns a hex-encoded BLAKE3 digest of data. BLAKE3 is used
// over SHA-256 here purely for walk-time throughput — content identity for
// rename/move detection across a whole distribution tree, not a security
// boundary.
func contentHash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
