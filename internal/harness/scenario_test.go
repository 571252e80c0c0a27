package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bequest/internal/plan"
	"github.com/roach88/bequest/internal/testutil"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "collaborator-rollback.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "collaborator-rollback", s.Name)
	require.Len(t, s.Steps, 9)

	step := s.Steps[1]
	assert.Equal(t, "create_plan", step.Op)
	assert.Equal(t, plan.Identity("alice"), step.Caller)
	assert.Equal(t, uint64(1), step.VaultID)
	assert.Equal(t, []plan.Beneficiary{{Beneficiary: "bob", Share: 5000}, {Beneficiary: "carol", Share: 5000}}, step.Beneficiaries)
	assert.Equal(t, map[testutil.Step]string{testutil.StepLock: "refuse"}, step.Fail)
	require.NotNil(t, step.Expect)
	assert.Equal(t, plan.CodeInvalidVaultID, step.Expect.Error)

	require.NotNil(t, s.Steps[2].Expect.Result)
	assert.Equal(t, uint64(0), *s.Steps[2].Expect.Result)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: x\ndescription: y\nstep: []\n",
			want: "field step not found",
		},
		{
			name: "missing name",
			yaml: "description: y\nsteps: [{op: set_oracle, caller: a}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: x\nsteps: [{op: set_oracle, caller: a}]\n",
			want: "description is required",
		},
		{
			name: "no steps",
			yaml: "name: x\ndescription: y\n",
			want: "steps list is required",
		},
		{
			name: "unknown op",
			yaml: "name: x\ndescription: y\nsteps: [{op: transfer, caller: a}]\n",
			want: `unknown op "transfer"`,
		},
		{
			name: "unknown collaborator",
			yaml: "name: x\ndescription: y\nsteps: [{op: set_oracle, caller: a, fail: {bank: refuse}}]\n",
			want: `unknown collaborator step "bank"`,
		},
		{
			name: "unknown mode",
			yaml: "name: x\ndescription: y\nsteps: [{op: set_oracle, caller: a, fail: {lock: sometimes}}]\n",
			want: `unknown stub mode "sometimes"`,
		},
		{
			name: "unknown code",
			yaml: "name: x\ndescription: y\nsteps: [{op: set_oracle, caller: a, expect: {error: NOPE}}]\n",
			want: `unknown error code "NOPE"`,
		},
		{
			name: "plan assertion without expect",
			yaml: "name: x\ndescription: y\nsteps: [{op: set_oracle, caller: a}]\nassertions: [{type: plan, plan_id: 0}]\n",
			want: "plan_id and expect are required",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\ndescription: y\nsteps: [{op: set_oracle, caller: a}]\nassertions: [{type: vibes}]\n",
			want: `unknown assertion type "vibes"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAllScenarioFilesParse(t *testing.T) {
	entries, err := os.ReadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		t.Run(e.Name(), func(t *testing.T) {
			_, err := LoadScenario(filepath.Join("testdata", "scenarios", e.Name()))
			assert.NoError(t, err)
		})
	}
}
