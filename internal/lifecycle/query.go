package lifecycle

import (
	"context"
	"math"

	"github.com/roach88/bequest/internal/ir"
	"github.com/roach88/bequest/internal/plan"
)

// Read-only accessors. They see committed state only and never block on an
// operation for longer than its transaction.

// GetPlan returns a plan by id.
func (e *Engine) GetPlan(ctx context.Context, id uint64) (plan.Plan, bool, error) {
	return e.store.Plans().Get(ctx, id)
}

// ListPlans returns every plan ordered by id.
func (e *Engine) ListPlans(ctx context.Context) ([]plan.Plan, error) {
	return e.store.Plans().List(ctx)
}

// GetPlanExecution returns the execution record of a plan.
func (e *Engine) GetPlanExecution(ctx context.Context, id uint64) (plan.Execution, bool, error) {
	return e.store.Plans().GetExecution(ctx, id)
}

// GetBeneficiaryClaim returns the claim of who on a plan. Absence means the
// share has not been claimed.
func (e *Engine) GetBeneficiaryClaim(ctx context.Context, id uint64, who plan.Identity) (plan.Claim, bool, error) {
	return e.store.Claims().Get(ctx, id, who)
}

// ListClaims returns every claim on a plan.
func (e *Engine) ListClaims(ctx context.Context, id uint64) ([]plan.Claim, error) {
	return e.store.Claims().ForPlan(ctx, id)
}

// GetPlanCount returns the number of successfully created plans.
func (e *Engine) GetPlanCount(ctx context.Context) (uint64, error) {
	cfg, err := e.store.Config().Load(ctx)
	if err != nil {
		return 0, err
	}
	return cfg.PlanCount, nil
}

// GetConfig returns the configuration row.
func (e *Engine) GetConfig(ctx context.Context) (plan.Config, error) {
	return e.store.Config().Load(ctx)
}

// AuditTrail returns the audit events of one plan in seq order. Ids outside
// the int64 range never name a plan.
func (e *Engine) AuditTrail(ctx context.Context, id uint64) ([]ir.AuditEvent, error) {
	if id > math.MaxInt64 {
		return []ir.AuditEvent{}, nil
	}
	return e.store.Audit().ForPlan(ctx, int64(id))
}

// ConfigTrail returns the configuration audit events in seq order.
func (e *Engine) ConfigTrail(ctx context.Context) ([]ir.AuditEvent, error) {
	return e.store.Audit().ForPlan(ctx, ir.NoPlan)
}

// AllEvents returns the whole audit log in seq order.
func (e *Engine) AllEvents(ctx context.Context) ([]ir.AuditEvent, error) {
	return e.store.Audit().All(ctx)
}
