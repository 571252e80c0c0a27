package lifecycle

import (
	"context"
	"slices"

	"github.com/roach88/bequest/internal/ir"
	"github.com/roach88/bequest/internal/plan"
	"github.com/roach88/bequest/internal/store"
)

// UpdatePlan replaces the beneficiaries and conditions of an Active plan,
// re-encrypts the allocation and bumps the version by one. Creator, vault,
// status and created_at are preserved.
func (e *Engine) UpdatePlan(
	ctx context.Context,
	caller plan.Identity,
	planID uint64,
	beneficiaries []plan.Beneficiary,
	conditions []plan.Condition,
) error {
	return e.apply(ctx, OpUpdatePlan, caller, func(tx *store.Tx, now int64) (auditRecord, error) {
		p, err := loadPlan(ctx, tx, planID)
		if err != nil {
			return auditRecord{}, err
		}
		if !plan.IsCreator(p, caller) {
			return auditRecord{}, plan.Errorf(plan.CodeUnauthorized, "caller %q is not the plan creator", caller).ForPlan(planID)
		}
		if !plan.IsActive(p) {
			return auditRecord{}, plan.Errorf(plan.CodeInvalidPlan, "plan is %s", p.Status).ForPlan(planID)
		}

		if err := plan.ValidateBeneficiaries(beneficiaries); err != nil {
			return auditRecord{}, err
		}
		if err := plan.ValidateConditions(conditions); err != nil {
			return auditRecord{}, err
		}

		ciphertext, err := e.seal(ctx, p.ID, p.VaultID, beneficiaries)
		if err != nil {
			return auditRecord{}, err
		}

		p.Beneficiaries = slices.Clone(beneficiaries)
		p.Conditions = slices.Clone(conditions)
		p.EncryptedAllocation = ciphertext
		p.UpdatedAt = now
		p.Version++
		if err := tx.Plans.Update(ctx, p); err != nil {
			return auditRecord{}, err
		}

		return auditRecord{
			kind:   ir.EventPlanUpdated,
			planID: int64(p.ID),
			payload: ir.Object{
				"id":      planInt(p.ID),
				"version": ir.Int(int64(p.Version)),
			},
		}, nil
	})
}
