// Package fingerprint computes the content digests used for change
// detection and per-document snippet deduplication.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeContent collapses every whitespace run to a single space and
// trims the result, so that formatting-only differences (re-wrapped lines,
// trailing spaces) do not change a document's fingerprint.
func NormalizeContent(content string) string {
	return strings.Join(strings.Fields(content), " ")
}

// Content returns the hex SHA-256 of the normalized document content.
func Content(content string) string {
	sum := sha256.Sum256([]byte(NormalizeContent(content)))
	return hex.EncodeToString(sum[:])
}

// Code returns the hex SHA-256 of the code after trimming leading and
// trailing whitespace. The language is not part of the hash: the same code
// under two language labels is still a duplicate within one document.
func Code(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}
