package collab

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bequest/internal/lifecycle"
	"github.com/roach88/bequest/internal/plan"
	"github.com/roach88/bequest/internal/store"
)

const fixtureYAML = `
registry:
  members: [alice]
oracle:
  identity: oracle
  key: oracle-secret
encryption_key: allocation-secret
vaults:
  - id: 1
    owner: alice
  - id: 2
`

func writeFixtures(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o644))
	return path
}

func TestLoadFixtures(t *testing.T) {
	f, err := LoadFixtures(writeFixtures(t))
	require.NoError(t, err)

	assert.Equal(t, []plan.Identity{"alice"}, f.Registry.Members)
	assert.False(t, f.Registry.Open)
	assert.Equal(t, OracleFixture{Identity: "oracle", Key: "oracle-secret"}, f.Oracle)
	assert.Equal(t, []VaultFixture{{ID: 1, Owner: "alice"}, {ID: 2}}, f.Vaults)

	_, err = LoadFixtures(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestFixtures_DriveEngine runs a whole plan lifecycle over the reference
// collaborators.
func TestFixtures_DriveEngine(t *testing.T) {
	ctx := context.Background()
	f, err := LoadFixtures(writeFixtures(t))
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	set, err := f.Build(logger)
	require.NoError(t, err)

	s, err := store.Open(filepath.Join(t.TempDir(), "bequest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	e, err := lifecycle.New(ctx, s, set.Collaborators(), lifecycle.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, e.SetOracle(ctx, "admin", "oracle"))

	conds := []plan.Condition{{EventType: "death", Threshold: 1, ProofRequired: true}}
	bs := []plan.Beneficiary{{Beneficiary: "bob", Share: 5000}, {Beneficiary: "carol", Share: 5000}}

	_, err = e.CreatePlan(ctx, "bob", bs, conds, 2)
	assert.ErrorIs(t, err, plan.ErrUnauthorized, "bob is not registered")

	id, err := e.CreatePlan(ctx, "alice", bs, conds, 1)
	require.NoError(t, err)

	err = e.ExecutePlan(ctx, "oracle", id, []byte("forged"))
	assert.ErrorIs(t, err, plan.ErrInvalidPlan)

	proof, err := set.Oracle.Attest(conds)
	require.NoError(t, err)
	require.NoError(t, e.ExecutePlan(ctx, "oracle", id, proof))

	share, err := e.ClaimShare(ctx, "bob", id)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), share)

	st, ok := set.Vault.State(1)
	require.True(t, ok)
	assert.True(t, st.Locked)
	assert.Equal(t, map[plan.Identity]uint64{"bob": 5000}, st.Released)
}
