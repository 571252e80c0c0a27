package lifecycle

import (
	"context"
	"strconv"

	"github.com/roach88/bequest/internal/ir"
	"github.com/roach88/bequest/internal/plan"
	"github.com/roach88/bequest/internal/store"
)

// SetOracle configures the oracle identity. It can be set exactly once;
// every later call, and any call with an empty identity, is UNAUTHORIZED.
func (e *Engine) SetOracle(ctx context.Context, caller, oracle plan.Identity) error {
	return e.apply(ctx, OpSetOracle, caller, func(tx *store.Tx, _ int64) (auditRecord, error) {
		if oracle == "" {
			return auditRecord{}, plan.Errorf(plan.CodeUnauthorized, "oracle identity must not be empty")
		}
		set, err := tx.Config.SetOracle(ctx, oracle)
		if err != nil {
			return auditRecord{}, err
		}
		if !set {
			return auditRecord{}, plan.Errorf(plan.CodeUnauthorized, "oracle already configured")
		}
		return auditRecord{
			kind:    ir.EventOracleSet,
			planID:  ir.NoPlan,
			payload: ir.Object{"oracle": ir.String(oracle)},
		}, nil
	})
}

// SetExecutionFee changes the execution fee. It requires a configured oracle,
// and only that oracle may change the fee. No upper bound is enforced.
func (e *Engine) SetExecutionFee(ctx context.Context, caller plan.Identity, fee uint64) error {
	return e.apply(ctx, OpSetExecutionFee, caller, func(tx *store.Tx, _ int64) (auditRecord, error) {
		cfg, err := tx.Config.Load(ctx)
		if err != nil {
			return auditRecord{}, err
		}
		if !cfg.OracleSet() {
			return auditRecord{}, plan.Errorf(plan.CodeUnauthorized, "no oracle configured")
		}
		if !plan.IsOracle(cfg.Oracle, caller) {
			return auditRecord{}, plan.Errorf(plan.CodeUnauthorized, "caller %q is not the oracle", caller)
		}
		if err := tx.Config.SetExecutionFee(ctx, fee); err != nil {
			return auditRecord{}, err
		}
		return auditRecord{
			kind:   ir.EventFeeSet,
			planID: ir.NoPlan,
			// Decimal string: fees may exceed the int64 range.
			payload: ir.Object{"fee": ir.String(strconv.FormatUint(fee, 10))},
		}, nil
	})
}
