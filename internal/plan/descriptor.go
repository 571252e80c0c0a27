package plan

import (
	"fmt"

	"github.com/roach88/bequest/internal/ir"
)

// Descriptor builds the plaintext handed to the encryption collaborator: the
// canonical JSON of the plan id, vault id and ordered beneficiary list.
// Identical allocations always produce identical bytes.
func Descriptor(planID, vaultID uint64, bs []Beneficiary) ([]byte, error) {
	entries := make(ir.Array, len(bs))
	for i, b := range bs {
		share, err := ir.FromGo(b.Share)
		if err != nil {
			return nil, fmt.Errorf("beneficiary[%d] share: %w", i, err)
		}
		entries[i] = ir.Object{
			"beneficiary": ir.String(b.Beneficiary),
			"share":       share,
		}
	}
	pid, err := ir.FromGo(planID)
	if err != nil {
		return nil, fmt.Errorf("plan id: %w", err)
	}
	vid, err := ir.FromGo(vaultID)
	if err != nil {
		return nil, fmt.Errorf("vault id: %w", err)
	}
	return ir.MarshalCanonical(ir.Object{
		"plan_id":       pid,
		"vault_id":      vid,
		"beneficiaries": entries,
	})
}

// CanonicalConditions returns the canonical JSON of a condition list. Oracle
// attestations are computed over these bytes.
func CanonicalConditions(cs []Condition) ([]byte, error) {
	entries := make(ir.Array, len(cs))
	for i, c := range cs {
		threshold, err := ir.FromGo(c.Threshold)
		if err != nil {
			return nil, fmt.Errorf("condition[%d] threshold: %w", i, err)
		}
		entries[i] = ir.Object{
			"event_type":     ir.String(c.EventType),
			"threshold":      threshold,
			"proof_required": ir.Bool(c.ProofRequired),
		}
	}
	return ir.MarshalCanonical(entries)
}
