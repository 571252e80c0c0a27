package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future algorithm migration.
const (
	DomainAuditEvent = "bequest/audit-event/v1"
	DomainRecipient  = "bequest/recipient/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return h.Sum(nil)
}

// EventID computes the content-addressed ID of an audit event.
//
// The request token is excluded: it correlates log lines with the caller's
// request but says nothing about what was committed, and replaying the same
// operation sequence must reproduce the same IDs.
func EventID(kind string, planID int64, payload Object, seq int64) (string, error) {
	obj := Object{
		"kind":    String(kind),
		"plan_id": Int(planID),
		"payload": payload,
		"seq":     Int(seq),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hex.EncodeToString(hashWithDomain(DomainAuditEvent, canonical)), nil
}

// MustEventID is like EventID but panics on error.
// Use only in tests or when the payload is known to be valid.
func MustEventID(kind string, planID int64, payload Object, seq int64) string {
	id, err := EventID(kind, planID, payload, seq)
	if err != nil {
		panic(err)
	}
	return id
}

// RecipientDigest returns a short, domain-separated digest of an identity.
// Ciphertexts carry these instead of raw identities so the recipient set
// stays small and does not reveal who the beneficiaries are.
func RecipientDigest(identity string) [8]byte {
	var d [8]byte
	copy(d[:], hashWithDomain(DomainRecipient, []byte(identity)))
	return d
}
