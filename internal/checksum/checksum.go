// Package checksum derives content digests and stable identifiers.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ID returns a short stable identifier derived from the given parts.
// Parts are joined with a NUL separator so ("ab","c") and ("a","bc") differ.
func ID(parts ...string) string {
	var buf []byte
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, 0)
		}
		buf = append(buf, p...)
	}
	return Sum(buf)[:16]
}
