package lifecycle

import (
	"context"
	"slices"

	"github.com/roach88/bequest/internal/ir"
	"github.com/roach88/bequest/internal/plan"
	"github.com/roach88/bequest/internal/store"
)

// ExecutePlan moves an Active plan to Executed once the oracle confirms its
// conditions, records the execution and opens claims through the dispatcher.
//
// The caller must be the identity the oracle collaborator currently reports.
// A proof the oracle refuses, an oversized proof and a verification error are
// all INVALID_PLAN. If the dispatcher fails, the status change is rolled back.
func (e *Engine) ExecutePlan(ctx context.Context, caller plan.Identity, planID uint64, proof []byte) error {
	return e.apply(ctx, OpExecutePlan, caller, func(tx *store.Tx, now int64) (auditRecord, error) {
		p, err := loadPlan(ctx, tx, planID)
		if err != nil {
			return auditRecord{}, err
		}

		oracle, err := e.collab.Oracle.CurrentOracleIdentity(ctx)
		if err != nil {
			return auditRecord{}, plan.Errorf(plan.CodeUnauthorized, "resolve oracle identity").ForPlan(planID).Wrap(err)
		}
		if !plan.IsOracle(oracle, caller) {
			return auditRecord{}, plan.Errorf(plan.CodeUnauthorized, "caller %q is not the oracle", caller).ForPlan(planID)
		}

		if !plan.IsActive(p) {
			return auditRecord{}, plan.Errorf(plan.CodeInvalidPlan, "plan is %s", p.Status).ForPlan(planID)
		}
		if err := plan.ValidateProof(proof); err != nil {
			return auditRecord{}, err
		}

		ok, err := e.collab.Oracle.VerifyCondition(ctx, p.Conditions, proof)
		if err := refused(ok, err, plan.CodeInvalidPlan, "oracle did not verify conditions"); err != nil {
			return auditRecord{}, err.ForPlan(planID)
		}

		p.Status = plan.StatusExecuted
		if err := tx.Plans.Update(ctx, p); err != nil {
			return auditRecord{}, err
		}
		if err := tx.Plans.InsertExecution(ctx, plan.Execution{
			PlanID:      p.ID,
			ExecutedAt:  now,
			OracleProof: slices.Clone(proof),
			Verified:    true,
			Executor:    caller,
		}); err != nil {
			return auditRecord{}, err
		}

		ok, err = e.collab.Dispatcher.InitiateClaims(ctx, p.ID, slices.Clone(p.Beneficiaries))
		if err := refused(ok, err, plan.CodeInvalidPlan, "claim dispatch failed"); err != nil {
			return auditRecord{}, err.ForPlan(planID)
		}

		return auditRecord{
			kind:    ir.EventPlanExecuted,
			planID:  int64(p.ID),
			payload: ir.Object{"id": planInt(p.ID)},
		}, nil
	})
}
