package lifecycle

import (
	"context"

	"github.com/roach88/bequest/internal/ir"
	"github.com/roach88/bequest/internal/plan"
	"github.com/roach88/bequest/internal/store"
)

// ClaimShare releases caller's share of an Executed plan and returns it.
// Each beneficiary can claim once; every later attempt is INVALID_PLAN, as is
// any refusal from the encryptor or the vault.
func (e *Engine) ClaimShare(ctx context.Context, caller plan.Identity, planID uint64) (uint64, error) {
	var share uint64
	err := e.apply(ctx, OpClaimShare, caller, func(tx *store.Tx, now int64) (auditRecord, error) {
		p, err := loadPlan(ctx, tx, planID)
		if err != nil {
			return auditRecord{}, err
		}
		_, executed, err := tx.Plans.GetExecution(ctx, planID)
		if err != nil {
			return auditRecord{}, err
		}
		if !executed || p.Status != plan.StatusExecuted {
			return auditRecord{}, plan.Errorf(plan.CodeInvalidPlan, "plan has not been executed").ForPlan(planID)
		}

		claimed, err := tx.Claims.HasClaimed(ctx, planID, caller)
		if err != nil {
			return auditRecord{}, err
		}
		if claimed {
			return auditRecord{}, plan.Errorf(plan.CodeInvalidPlan, "%q has already claimed", caller).ForPlan(planID)
		}

		amount, ok := p.ShareOf(caller)
		if !ok {
			return auditRecord{}, plan.Errorf(plan.CodeInvalidPlan, "%q is not a beneficiary", caller).ForPlan(planID)
		}

		ok, err = e.collab.Encryptor.VerifyDecryption(ctx, caller, p.EncryptedAllocation)
		if err := refused(ok, err, plan.CodeInvalidPlan, "%q may not decrypt the allocation", caller); err != nil {
			return auditRecord{}, err.ForPlan(planID)
		}

		// The claim row goes in before the release so a failed write never
		// follows a payout. A release that succeeds is not undone if the
		// audit append after it fails.
		if err := tx.Claims.Record(ctx, plan.Claim{
			PlanID:        planID,
			Beneficiary:   caller,
			Claimed:       true,
			ClaimedAt:     now,
			ShareReceived: amount,
		}); err != nil {
			return auditRecord{}, err
		}

		ok, err = e.collab.Vault.Release(ctx, p.VaultID, caller, amount)
		if err := refused(ok, err, plan.CodeInvalidPlan, "vault %d refused release", p.VaultID); err != nil {
			return auditRecord{}, err.ForPlan(planID)
		}

		share = amount
		return auditRecord{
			kind:   ir.EventShareClaimed,
			planID: int64(planID),
			payload: ir.Object{
				"id":          planInt(planID),
				"beneficiary": ir.String(caller),
				"share":       ir.Int(int64(amount)),
			},
		}, nil
	})
	if err != nil {
		return 0, err
	}
	return share, nil
}
