package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bequest/internal/plan"
	"github.com/roach88/bequest/internal/testutil"
)

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()
	stubs := testutil.NewStubs(testOracle)

	_, err := New(ctx, nil, collaboratorsOf(stubs))
	assert.Error(t, err)

	c := collaboratorsOf(stubs)
	c.Vault = nil
	_, err = New(ctx, openTestStore(t), c)
	assert.ErrorContains(t, err, "vault")
}

func TestNew_ResumesClock(t *testing.T) {
	f := newConfiguredFixture(t)
	f.createHalves(t, 1)
	require.Equal(t, int64(2), f.engine.Now())

	again, err := New(context.Background(), f.store, collaboratorsOf(f.stubs),
		WithLogger(discardLogger()),
		WithTokenGenerator(testutil.NewSequenceGenerator("again")),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.Now())

	id, err := again.CreatePlan(context.Background(), "alice", halves(), deathCondition(), 2)
	require.NoError(t, err)
	p, _, err := again.GetPlan(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.CreatedAt)
}

func TestNew_PlanCapacityPersists(t *testing.T) {
	f := newFixture(t, WithPlanCapacity(5))
	cfg, err := f.engine.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), cfg.PlanCapacity)
}

func TestApply_RejectionsConsumeNoTime(t *testing.T) {
	f := newConfiguredFixture(t)
	ctx := context.Background()

	before := f.engine.Now()
	_, err := f.engine.CreatePlan(ctx, "alice", nil, deathCondition(), 1)
	require.Error(t, err)
	err = f.engine.ExecutePlan(ctx, "alice", 0, nil)
	require.Error(t, err)
	assert.Equal(t, before, f.engine.Now())

	events, err := f.engine.AllEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1, "only the oracle configuration was recorded")
}

func TestApply_RecordsOutcomes(t *testing.T) {
	f := newConfiguredFixture(t)
	ctx := context.Background()
	f.createHalves(t, 1)
	_, err := f.engine.ClaimShare(ctx, "bob", 0)
	require.Error(t, err)

	assert.Equal(t, []observation{
		{op: OpSetOracle, success: true},
		{op: OpCreatePlan, success: true},
		{op: OpClaimShare, success: false},
	}, f.rec.seen)
}

func TestApply_ConcurrentCreates(t *testing.T) {
	f := newConfiguredFixture(t)
	ctx := context.Background()
	const n = 16

	var wg sync.WaitGroup
	ids := make(chan uint64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(vault uint64) {
			defer wg.Done()
			id, err := f.engine.CreatePlan(ctx, plan.Identity(fmt.Sprintf("creator-%d", vault)), halves(), deathCondition(), vault)
			assert.NoError(t, err)
			ids <- id
		}(uint64(i + 1))
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool)
	for id := range ids {
		assert.False(t, seen[id], "plan id %d issued twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)

	count, err := f.engine.GetPlanCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), count)

	events, err := f.engine.AllEvents(ctx)
	require.NoError(t, err)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq, "seqs are gapless")
	}
}
