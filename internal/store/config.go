package store

import (
	"context"
	"fmt"

	"github.com/roach88/bequest/internal/plan"
)

// ConfigState is the single process-wide configuration row: the set-once
// oracle identity, the execution fee, the plan counter and the capacity.
type ConfigState struct {
	q querier
}

// Load reads the configuration row.
func (c ConfigState) Load(ctx context.Context) (plan.Config, error) {
	var (
		cfg                  plan.Config
		oracle               string
		fee, count, capacity int64
	)
	err := c.q.QueryRowContext(ctx, `
		SELECT oracle, execution_fee, plan_count, plan_capacity
		FROM config_state
		WHERE id = 0
	`).Scan(&oracle, &fee, &count, &capacity)
	if err != nil {
		return plan.Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg.Oracle = plan.Identity(oracle)
	cfg.ExecutionFee = fromSQL(fee)
	cfg.PlanCount = fromSQL(count)
	cfg.PlanCapacity = fromSQL(capacity)
	return cfg, nil
}

// SetOracle stores the oracle identity if none is set yet. It reports false,
// without writing, when an oracle already exists.
func (c ConfigState) SetOracle(ctx context.Context, oracle plan.Identity) (bool, error) {
	res, err := c.q.ExecContext(ctx, `
		UPDATE config_state SET oracle = ? WHERE id = 0 AND oracle = ''
	`, string(oracle))
	if err != nil {
		return false, fmt.Errorf("set oracle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set oracle: rows affected: %w", err)
	}
	return n == 1, nil
}

// SetExecutionFee stores the fee.
func (c ConfigState) SetExecutionFee(ctx context.Context, fee uint64) error {
	if _, err := c.q.ExecContext(ctx, `
		UPDATE config_state SET execution_fee = ? WHERE id = 0
	`, toSQL(fee)); err != nil {
		return fmt.Errorf("set execution fee: %w", err)
	}
	return nil
}

// SetPlanCapacity stores the capacity. Lowering it below the current count
// only prevents further creations; existing plans are unaffected.
func (c ConfigState) SetPlanCapacity(ctx context.Context, capacity uint64) error {
	if _, err := c.q.ExecContext(ctx, `
		UPDATE config_state SET plan_capacity = ? WHERE id = 0
	`, toSQL(capacity)); err != nil {
		return fmt.Errorf("set plan capacity: %w", err)
	}
	return nil
}

// IncrementPlanCount bumps the plan counter and returns the new value.
func (c ConfigState) IncrementPlanCount(ctx context.Context) (uint64, error) {
	if _, err := c.q.ExecContext(ctx, `
		UPDATE config_state SET plan_count = plan_count + 1 WHERE id = 0
	`); err != nil {
		return 0, fmt.Errorf("increment plan count: %w", err)
	}
	var count int64
	if err := c.q.QueryRowContext(ctx, `
		SELECT plan_count FROM config_state WHERE id = 0
	`).Scan(&count); err != nil {
		return 0, fmt.Errorf("read plan count: %w", err)
	}
	return fromSQL(count), nil
}
