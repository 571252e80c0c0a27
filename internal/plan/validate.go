package plan

// Validator checks. Each is pure: identical input yields the identical
// result and nothing is mutated.

// ValidateBeneficiaries checks an allocation.
// Rules:
//   - more than MaxBeneficiaries entries: MAX_BENEFICIARIES_EXCEEDED
//   - empty list, empty or repeated identity: INVALID_ALLOCATION
//   - shares not summing to exactly TotalShareBPS: INVALID_ALLOCATION
func ValidateBeneficiaries(bs []Beneficiary) error {
	if len(bs) > MaxBeneficiaries {
		return Errorf(CodeMaxBeneficiariesExceeded,
			"%d beneficiaries exceeds the limit of %d", len(bs), MaxBeneficiaries)
	}
	if len(bs) == 0 {
		return Errorf(CodeInvalidAllocation, "at least one beneficiary is required")
	}

	seen := make(map[Identity]struct{}, len(bs))
	var total uint64
	for i, b := range bs {
		if b.Beneficiary == "" {
			return Errorf(CodeInvalidAllocation, "beneficiary[%d] has no identity", i)
		}
		if _, dup := seen[b.Beneficiary]; dup {
			return Errorf(CodeInvalidAllocation, "beneficiary %q listed more than once", b.Beneficiary)
		}
		seen[b.Beneficiary] = struct{}{}

		// A single share above the total can only fail; checking here also
		// keeps the running sum from wrapping.
		if b.Share > TotalShareBPS {
			return Errorf(CodeInvalidAllocation,
				"beneficiary %q share %d exceeds %d", b.Beneficiary, b.Share, TotalShareBPS)
		}
		total += b.Share
	}
	if total != TotalShareBPS {
		return Errorf(CodeInvalidAllocation, "shares sum to %d, want %d", total, TotalShareBPS)
	}
	return nil
}

// ValidateConditions checks a release condition list: 1 to MaxConditions
// entries, each with a printable event type of 1 to MaxEventTypeLen bytes and
// a threshold in [1, MaxThreshold].
func ValidateConditions(cs []Condition) error {
	if len(cs) == 0 {
		return Errorf(CodeInvalidCondition, "at least one condition is required")
	}
	if len(cs) > MaxConditions {
		return Errorf(CodeInvalidCondition, "%d conditions exceeds the limit of %d", len(cs), MaxConditions)
	}
	for i, c := range cs {
		if n := len(c.EventType); n == 0 || n > MaxEventTypeLen {
			return Errorf(CodeInvalidCondition,
				"condition[%d] event_type length %d outside [1,%d]", i, n, MaxEventTypeLen)
		}
		if !printable(c.EventType) {
			return Errorf(CodeInvalidCondition, "condition[%d] event_type %q is not printable", i, c.EventType)
		}
		if c.Threshold < 1 {
			return Errorf(CodeInvalidCondition, "condition[%d] threshold must be at least 1", i)
		}
		if c.Threshold > MaxThreshold {
			return Errorf(CodeInvalidCondition, "condition[%d] threshold %d exceeds %d", i, c.Threshold, uint64(MaxThreshold))
		}
	}
	return nil
}

// ValidateVaultID requires a vault reference in [1, MaxVaultID].
func ValidateVaultID(id uint64) error {
	if id == 0 {
		return Errorf(CodeInvalidVaultID, "vault id must be positive")
	}
	if id > MaxVaultID {
		return Errorf(CodeInvalidVaultID, "vault id %d exceeds %d", id, uint64(MaxVaultID))
	}
	return nil
}

// ValidateCiphertext requires 0 < len(blob) <= MaxCiphertextSize.
func ValidateCiphertext(blob []byte) error {
	if len(blob) == 0 {
		return Errorf(CodeEncryptionFailed, "ciphertext is empty")
	}
	if len(blob) > MaxCiphertextSize {
		return Errorf(CodeEncryptionFailed,
			"ciphertext of %d bytes exceeds %d", len(blob), MaxCiphertextSize)
	}
	return nil
}

// ValidateProof bounds an oracle proof. An oversized proof is reported the
// same way as one the oracle refuses.
func ValidateProof(proof []byte) error {
	if len(proof) > MaxProofSize {
		return Errorf(CodeInvalidPlan, "oracle proof of %d bytes exceeds %d", len(proof), MaxProofSize)
	}
	return nil
}

// printable reports whether s is entirely printable ASCII (0x20-0x7e).
func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
