package values

import (
	"fmt"
	"strconv"
)

// DedupKey identifies a logical notification for idempotent delivery.
// The base key prefers the upstream-assigned stable event id; when that is
// absent it falls back to the canonical case number, optionally qualified by
// the entity code. Per-recipient keys append the recipient identity so the
// same event deduplicates independently for every subscriber.
type DedupKey struct {
	key string
}

// NewUpstreamDedupKey builds a key from the upstream-assigned stable id.
func NewUpstreamDedupKey(upstreamID string) (DedupKey, error) {
	if upstreamID == "" {
		return DedupKey{}, fmt.Errorf("upstream id cannot be empty")
	}
	return DedupKey{key: "reg:" + upstreamID}, nil
}

// NewCaseDedupKey builds a fallback key from a canonical case number and an
// optional entity code.
func NewCaseDedupKey(number CaseNumber, entityCode string) (DedupKey, error) {
	if number.IsEmpty() {
		return DedupKey{}, fmt.Errorf("case number cannot be empty")
	}
	if entityCode != "" {
		return DedupKey{key: "case:" + number.String() + ":" + entityCode}, nil
	}
	return DedupKey{key: "case:" + number.String()}, nil
}

// RawDedupKey wraps an already-formed key loaded from storage.
func RawDedupKey(key string) DedupKey {
	return DedupKey{key: key}
}

// ForRecipient derives the per-recipient ledger key.
func (k DedupKey) ForRecipient(chatID int64) DedupKey {
	return DedupKey{key: k.key + ":" + strconv.FormatInt(chatID, 10)}
}

// String returns the full key.
func (k DedupKey) String() string {
	return k.key
}

// IsEmpty checks if the key is unset.
func (k DedupKey) IsEmpty() bool {
	return k.key == ""
}

// Equal checks if two keys are equal.
func (k DedupKey) Equal(other DedupKey) bool {
	return k.key == other.key
}
