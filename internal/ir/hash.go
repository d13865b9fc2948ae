package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash domains. The version suffix allows the encoding to change without
// colliding with older hashes.
const (
	DomainConstraint = "requery/constraint/v1"
	DomainPlan       = "requery/plan/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data) as lowercase hex.
// The separator keeps domain and data from running into each other.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the domain-separated SHA-256 of the canonical form of v.
func Hash(domain string, v Value) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

// MustHash is like Hash but panics on error. Use only with values known to
// be valid.
func MustHash(domain string, v Value) string {
	h, err := Hash(domain, v)
	if err != nil {
		panic(err)
	}
	return h
}
