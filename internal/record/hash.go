package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The TraceVersion suffix enables future schema migration: bumping it
// changes every digest, so old and new records can never collide.
const (
	DomainEvent       = "stepwise/event/v" + TraceVersion
	DomainDescription = "stepwise/description/v" + TraceVersion
	DomainScenario    = "stepwise/scenario/v" + TraceVersion
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed ID for an event.
// The ID is stable across machines and replays given the same trace.
//
// DESIGN DECISION: Display is intentionally EXCLUDED from EventID.
// The ID represents what the engine observed (step identity, outcome,
// position), not how a reporter chose to render it. Two runs that differ
// only in markup settings produce identical event IDs.
func EventID(e Event) string {
	canonical, err := MarshalCanonical(e.payload())
	if err != nil {
		// Event payloads contain only strings and ints.
		panic(fmt.Sprintf("EventID: %v", err))
	}
	return hashWithDomain(DomainEvent, canonical)
}

// DescriptionDigest computes a stable digest for a step identity.
// Rendered parameter values are part of the name, so the same step invoked
// with different arguments digests differently.
func DescriptionDigest(owner, name string) string {
	canonical, err := MarshalCanonical(map[string]any{
		"owner": owner,
		"name":  name,
	})
	if err != nil {
		// Two strings always marshal.
		panic(fmt.Sprintf("DescriptionDigest: %v", err))
	}
	return hashWithDomain(DomainDescription, canonical)
}

// ScenarioDigest computes the content-addressed ID for a compiled scenario
// document. Returns error if the document cannot be canonically marshaled.
func ScenarioDigest(doc map[string]any) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("ScenarioDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainScenario, canonical), nil
}

// MustScenarioDigest is like ScenarioDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustScenarioDigest(doc map[string]any) string {
	id, err := ScenarioDigest(doc)
	if err != nil {
		panic(err)
	}
	return id
}
