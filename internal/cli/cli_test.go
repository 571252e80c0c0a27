package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is a database and fixtures file in a temp dir.
type testEnv struct {
	dir      string
	db       string
	fixtures string
	manifest string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, k := range []string{"BEQUEST_DB", "BEQUEST_FIXTURES", "BEQUEST_PLAN_CAPACITY", "BEQUEST_LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	fixtures := writeFile(t, dir, "fixtures.yaml", fmt.Sprintf(`registry:
  open: true
oracle:
  identity: oracle
  key: oracle-secret
encryption_key: allocation-secret
vault_state: %s
vaults:
  - id: 1
    owner: alice
`, filepath.Join(dir, "vaults.json")))

	return &testEnv{
		dir:      dir,
		db:       filepath.Join(dir, "bequest.db"),
		fixtures: fixtures,
		manifest: writeFile(t, dir, "estate.yaml", testManifestYAML),
	}
}

// run executes the CLI and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--db", e.db, "--fixtures", e.fixtures}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "bequest %s\n%s", strings.Join(args, " "), out)
	return out
}

// decodeData unmarshals the data field of a JSON CLI response.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func TestCLI_Lifecycle(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun(t, "config", "set-oracle", "oracle", "--as", "admin")
	assert.Contains(t, out, "Oracle:        oracle")

	out = e.mustRun(t, "plan", "create", "--as", "alice", "--file", e.manifest)
	assert.Equal(t, "Plan 0 created (seq 2)\n", out)

	out = e.mustRun(t, "--format", "json", "plan", "attest", "0")
	var att Attestation
	decodeData(t, out, &att)
	require.NotEmpty(t, att.Proof)

	out = e.mustRun(t, "plan", "execute", "0", "--as", "oracle", "--proof", att.Proof)
	assert.Equal(t, "Plan 0 executed (seq 3)\n", out)

	out = e.mustRun(t, "plan", "claim", "0", "--as", "bob")
	assert.Equal(t, "Claimed 5000 bps of plan 0 (seq 4)\n", out)

	out = e.mustRun(t, "claim", "show", "0", "bob")
	assert.Equal(t, "bob claimed 5000 bps of plan 0 at 4\n", out)
	out = e.mustRun(t, "claim", "show", "0", "carol")
	assert.Equal(t, "carol has not claimed plan 0 (share 5000 bps)\n", out)

	out = e.mustRun(t, "--format", "json", "plan", "show", "0")
	var view PlanView
	decodeData(t, out, &view)
	assert.Equal(t, "Executed", string(view.Plan.Status))
	require.NotNil(t, view.Execution)
	assert.Equal(t, int64(3), view.Execution.ExecutedAt)
	require.Len(t, view.Claims, 1)

	out = e.mustRun(t, "--format", "json", "trace", "--verify")
	var trace TraceResult
	decodeData(t, out, &trace)
	assert.True(t, trace.Verified)
	assert.Equal(t, 4, trace.Stats.TotalEvents)
	assert.Equal(t, map[string]int{"oracle-set": 1, "plan-created": 1, "plan-executed": 1, "share-claimed": 1}, trace.Stats.ByKind)

	out = e.mustRun(t, "trace", "--plan", "0")
	assert.Contains(t, out, "Audit trail: plan 0")
	assert.Contains(t, out, "[4] share-claimed")
	assert.NotContains(t, out, "oracle-set")
}

func TestCLI_Rejections(t *testing.T) {
	e := newTestEnv(t)

	// No oracle yet.
	out, err := e.run(t, "--format", "json", "plan", "create", "--as", "alice", "--file", e.manifest)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	e.mustRun(t, "config", "set-oracle", "oracle", "--as", "admin")

	out, err = e.run(t, "config", "set-oracle", "someone", "--as", "admin")
	require.Error(t, err)
	assert.Contains(t, out, "Error [UNAUTHORIZED]")

	out, err = e.run(t, "config", "set-fee", "10", "--as", "alice")
	require.Error(t, err)
	assert.Contains(t, out, "Error [UNAUTHORIZED]")

	e.mustRun(t, "plan", "create", "--as", "alice", "--file", e.manifest)

	out, err = e.run(t, "plan", "claim", "0", "--as", "bob")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [INVALID_PLAN]")

	out, err = e.run(t, "plan", "execute", "0", "--as", "oracle", "--proof", "00ff")
	require.Error(t, err)
	assert.Contains(t, out, "Error [INVALID_PLAN]")

	_, err = e.run(t, "plan", "execute", "0", "--as", "oracle", "--proof", "not-hex")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = e.run(t, "plan", "show", "x")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = e.run(t, "plan", "show", "9")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	// Rejections leave no trace.
	out = e.mustRun(t, "--format", "json", "trace")
	var trace TraceResult
	decodeData(t, out, &trace)
	assert.Equal(t, 2, trace.Stats.TotalEvents)
}

func TestCLI_UpdateAndConfig(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun(t, "config", "set-oracle", "oracle", "--as", "admin")
	e.mustRun(t, "plan", "create", "--as", "alice", "--file", e.manifest)

	update := writeFile(t, e.dir, "update.cue", `
beneficiaries: [{beneficiary: "dave", share: 10000}]
conditions: [{event_type: "incapacity", threshold: 2, proof_required: true}]
`)
	out := e.mustRun(t, "plan", "update", "0", "--as", "alice", "--file", update)
	assert.Equal(t, "Plan 0 updated to version 2 (seq 3)\n", out)

	out = e.mustRun(t, "config", "set-fee", "18446744073709551615", "--as", "oracle")
	assert.Contains(t, out, "Execution fee: 18446744073709551615")

	out = e.mustRun(t, "--format", "json", "config", "show")
	var cfg ConfigView
	decodeData(t, out, &cfg)
	assert.Equal(t, ConfigView{
		Oracle:       "oracle",
		ExecutionFee: "18446744073709551615",
		PlanCount:    1,
		PlanCapacity: 1000,
	}, cfg)

	out = e.mustRun(t, "plan", "list")
	assert.Contains(t, out, "alice (1 beneficiaries)")
}

func TestCLI_CapacityFlag(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun(t, "config", "set-oracle", "oracle", "--as", "admin")

	out := e.mustRun(t, "--capacity", "5", "--format", "json", "config", "show")
	var cfg ConfigView
	decodeData(t, out, &cfg)
	assert.Equal(t, uint64(5), cfg.PlanCapacity)
}

func TestCLI_MissingFixtures(t *testing.T) {
	t.Setenv("BEQUEST_FIXTURES", "")
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", filepath.Join(t.TempDir(), "x.db"), "config", "show"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "BEQUEST_FIXTURES")
}

func TestCLI_Validate(t *testing.T) {
	e := newTestEnv(t)
	bad := writeFile(t, e.dir, "bad.yaml", `vault_id: 1
beneficiaries: [{beneficiary: bob, share: 9000}]
conditions: [{event_type: death, threshold: 1}]
`)

	out := e.mustRun(t, "validate", e.manifest)
	assert.Contains(t, out, "✓ "+e.manifest+" (2 beneficiaries, 1 conditions)")

	out, err := e.run(t, "--format", "json", "validate", e.manifest, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	decodeData(t, out, &result)
	assert.False(t, result.Valid)
	require.Len(t, result.Manifests, 2)
	assert.True(t, result.Manifests[0].Valid)
	assert.Equal(t, "INVALID_ALLOCATION", result.Manifests[1].Code)
}

func TestCLI_TestCommand(t *testing.T) {
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")
	golden := filepath.Join("..", "harness", "testdata", "golden")

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"test", scenarios, "--golden", golden})
	require.NoError(t, cmd.Execute(), out.String())
	assert.Contains(t, out.String(), "✓ full-lifecycle")
	assert.Contains(t, out.String(), "Test Summary: 4 passed, 0 failed, 4 total")
}

func TestCLI_TestCommandUpdateAndMismatch(t *testing.T) {
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")
	golden := t.TempDir()

	run := func(args ...string) (string, error) {
		out := &bytes.Buffer{}
		cmd := NewRootCommand()
		cmd.SetOut(out)
		cmd.SetArgs(append([]string{"test", scenarios, "--golden", golden, "--filter", "full-*"}, args...))
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run("--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ full-lifecycle (golden updated)")

	written, err := os.ReadFile(filepath.Join(golden, "full-lifecycle.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", "full-lifecycle.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	require.NoError(t, os.WriteFile(filepath.Join(golden, "full-lifecycle.golden"), []byte("{}"), 0o644))
	out, err = run()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden file")
}

func TestCLI_TestCommandMissingDir(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"test", filepath.Join(t.TempDir(), "nope")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
