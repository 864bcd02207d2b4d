// Package hash provides shared hashing utilities for content fingerprints
// and truncated IDs.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// FingerprintLength is the number of hex characters in a content
// fingerprint. 32 hex chars = 16 bytes = 128 bits, enough to make an
// accidental collision between two versions of the same entity
// implausible.
const FingerprintLength = 32

// IDLength is the number of hex characters used for truncated hash IDs.
const IDLength = 16

// Fingerprint returns the content fingerprint of the given bytes as a
// 32-character hex string. Fingerprints detect change without transferring
// full content; they are also used as remote version tags.
func Fingerprint(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])[:FingerprintLength]
}

// FingerprintString returns the content fingerprint of a string.
func FingerprintString(data string) string {
	return Fingerprint([]byte(data))
}

// TruncatedID returns a short stable identifier derived from the input,
// a 16-character hex string.
func TruncatedID(data string) string {
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])[:IDLength]
}
