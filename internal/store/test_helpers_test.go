package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/bequest/internal/plan"
)

// createTestStore creates a new store in a per-test temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testPlan creates an Active plan with two even beneficiaries.
func testPlan(id uint64) plan.Plan {
	return plan.Plan{
		ID:      id,
		Creator: "alice",
		Beneficiaries: []plan.Beneficiary{
			{Beneficiary: "bob", Share: 5000},
			{Beneficiary: "carol", Share: 5000},
		},
		EncryptedAllocation: []byte{0xde, 0xad, 0xbe, 0xef},
		Conditions: []plan.Condition{
			{EventType: "death", Threshold: 1, ProofRequired: true},
		},
		Status:    plan.StatusActive,
		CreatedAt: 1,
		UpdatedAt: 1,
		VaultID:   1,
		Version:   1,
	}
}

// insertPlan commits p in its own transaction.
func insertPlan(t *testing.T, s *Store, p plan.Plan) {
	t.Helper()
	ctx := context.Background()
	if err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.Plans.Insert(ctx, p)
	}); err != nil {
		t.Fatalf("insert plan %d: %v", p.ID, err)
	}
}
