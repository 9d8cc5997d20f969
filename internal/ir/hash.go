package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed digests.
// Version suffix enables future algorithm migration.
const (
	DomainWorld      = "storygram/world/v1"
	DomainVariant    = "storygram/variant/v1"
	DomainProduction = "storygram/production/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// WorldDigest computes the content address of a world snapshot. Two worlds
// with the same exported document share a digest.
func WorldDigest(w WorldDoc) (string, error) {
	canonical, err := MarshalCanonical(w)
	if err != nil {
		return "", fmt.Errorf("WorldDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainWorld, canonical), nil
}

// VariantHash identifies a binding by its (pattern ref, world handle) pairs
// in order.
func VariantHash(bindings []Binding) (string, error) {
	arr := make([]any, len(bindings))
	for i, b := range bindings {
		arr[i] = map[string]any{
			"pattern_ref":  b.PatternRef,
			"world_handle": b.WorldHandle,
		}
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("VariantHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainVariant, canonical), nil
}

// ProductionDigest identifies a production by its title and left-hand side.
func ProductionDigest(p ProductionDoc) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"title": p.Title,
		"lside": p.LSide.canonicalMap(),
	})
	if err != nil {
		return "", fmt.Errorf("ProductionDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProduction, canonical), nil
}

// MustWorldDigest is like WorldDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustWorldDigest(w WorldDoc) string {
	d, err := WorldDigest(w)
	if err != nil {
		panic(err)
	}
	return d
}
