package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bequest/internal/plan"
	"github.com/roach88/bequest/internal/store"
	"github.com/roach88/bequest/internal/testutil"
)

const testOracle plan.Identity = "oracle"

type fixture struct {
	engine *Engine
	stubs  *testutil.Stubs
	store  *store.Store
	rec    *captureRecorder
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "bequest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture builds an engine over a fresh store with every collaborator
// stubbed. The oracle is not configured yet.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	s := openTestStore(t)
	stubs := testutil.NewStubs(testOracle)
	rec := &captureRecorder{}

	base := []Option{
		WithLogger(discardLogger()),
		WithTokenGenerator(testutil.NewSequenceGenerator("")),
		WithRecorder(rec),
	}
	e, err := New(context.Background(), s, collaboratorsOf(stubs), append(base, opts...)...)
	require.NoError(t, err)
	return &fixture{engine: e, stubs: stubs, store: s, rec: rec}
}

// newConfiguredFixture is newFixture with the oracle already set.
func newConfiguredFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := newFixture(t, opts...)
	require.NoError(t, f.engine.SetOracle(context.Background(), "admin", testOracle))
	return f
}

func collaboratorsOf(s *testutil.Stubs) Collaborators {
	return Collaborators{Registry: s, Encryptor: s, Vault: s, Oracle: s, Dispatcher: s}
}

func halves() []plan.Beneficiary {
	return []plan.Beneficiary{
		{Beneficiary: "bob", Share: 5000},
		{Beneficiary: "carol", Share: 5000},
	}
}

func deathCondition() []plan.Condition {
	return []plan.Condition{{EventType: "death", Threshold: 1, ProofRequired: true}}
}

// createHalves creates the canonical two-beneficiary plan on vaultID.
func (f *fixture) createHalves(t *testing.T, vaultID uint64) uint64 {
	t.Helper()
	id, err := f.engine.CreatePlan(context.Background(), "alice", halves(), deathCondition(), vaultID)
	require.NoError(t, err)
	return id
}

// executed creates and executes a plan, returning its id.
func (f *fixture) executed(t *testing.T, vaultID uint64) uint64 {
	t.Helper()
	id := f.createHalves(t, vaultID)
	require.NoError(t, f.engine.ExecutePlan(context.Background(), testOracle, id, []byte("certificate")))
	return id
}

type observation struct {
	op      string
	success bool
}

type captureRecorder struct {
	seen []observation
}

func (c *captureRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.seen = append(c.seen, observation{op: op, success: success})
}
