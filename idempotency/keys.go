// Package idempotency provides the shared primitives the workflow engine and
// the payment claim service build on: stable key derivation from request
// inputs, and classification of failures into retryable and terminal.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// KeyPrefix namespaces derived keys so rows from different operations can
// share the idempotency table without colliding.
type KeyPrefix string

const (
	PrefixRegister = KeyPrefix("register")
	PrefixSubmit   = KeyPrefix("submit")
	PrefixPurchase = KeyPrefix("purchase")
)

// DeriveKey builds a stable idempotency key from the parts that identify a
// request. The same logical request always derives the same key, regardless
// of input casing or surrounding whitespace.
func DeriveKey(prefix KeyPrefix, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(prefix))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
	}
	return string(prefix) + "-" + hex.EncodeToString(h.Sum(nil))[:32]
}

// NormalizeTxID lowers the case of a hex transaction identifier so equality
// and uniqueness checks are case-insensitive. It does not validate shape.
func NormalizeTxID(txID string) string {
	return strings.ToLower(strings.TrimSpace(txID))
}
