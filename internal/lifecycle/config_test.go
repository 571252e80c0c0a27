package lifecycle

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bequest/internal/ir"
	"github.com/roach88/bequest/internal/plan"
)

func TestSetOracle_Once(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SetOracle(ctx, "admin", "o1"))
	err := f.engine.SetOracle(ctx, "admin", "o2")
	assert.ErrorIs(t, err, plan.ErrUnauthorized)

	cfg, err := f.engine.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, plan.Identity("o1"), cfg.Oracle, "first oracle wins")
}

func TestSetOracle_Empty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engine.SetOracle(ctx, "admin", "")
	assert.ErrorIs(t, err, plan.ErrUnauthorized)

	cfg, err := f.engine.GetConfig(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.OracleSet())

	// An empty attempt does not use up the one configuration.
	assert.NoError(t, f.engine.SetOracle(ctx, "admin", "o1"))
}

func TestSetExecutionFee(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an oracle", func(t *testing.T) {
		f := newFixture(t)
		err := f.engine.SetExecutionFee(ctx, testOracle, 10)
		assert.ErrorIs(t, err, plan.ErrUnauthorized)
	})

	t.Run("only the oracle", func(t *testing.T) {
		f := newConfiguredFixture(t)
		err := f.engine.SetExecutionFee(ctx, "alice", 10)
		assert.ErrorIs(t, err, plan.ErrUnauthorized)
	})

	t.Run("stores the fee", func(t *testing.T) {
		f := newConfiguredFixture(t)
		require.NoError(t, f.engine.SetExecutionFee(ctx, testOracle, 250))
		require.NoError(t, f.engine.SetExecutionFee(ctx, testOracle, math.MaxUint64))

		cfg, err := f.engine.GetConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(math.MaxUint64), cfg.ExecutionFee)
	})
}

func TestConfigTrail(t *testing.T) {
	f := newConfiguredFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.SetExecutionFee(ctx, testOracle, math.MaxUint64))
	f.createHalves(t, 1)

	trail, err := f.engine.ConfigTrail(ctx)
	require.NoError(t, err)
	require.Len(t, trail, 2)

	assert.Equal(t, ir.EventOracleSet, trail[0].Kind)
	assert.Equal(t, ir.NoPlan, trail[0].PlanID)
	assert.Equal(t, ir.Object{"oracle": ir.String("oracle")}, trail[0].Payload)

	assert.Equal(t, ir.EventFeeSet, trail[1].Kind)
	assert.Equal(t, ir.Object{"fee": ir.String("18446744073709551615")}, trail[1].Payload)
}
