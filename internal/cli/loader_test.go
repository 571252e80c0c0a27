package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bequest/internal/plan"
)

const testManifestYAML = `vault_id: 1
beneficiaries:
  - {beneficiary: bob, share: 5000}
  - {beneficiary: carol, share: 5000}
conditions:
  - {event_type: death, threshold: 1, proof_required: true}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func wantManifest() *Manifest {
	return &Manifest{
		VaultID: 1,
		Beneficiaries: []plan.Beneficiary{
			{Beneficiary: "bob", Share: 5000},
			{Beneficiary: "carol", Share: 5000},
		},
		Conditions: []plan.Condition{{EventType: "death", Threshold: 1, ProofRequired: true}},
	}
}

func TestLoadManifest_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "estate.yaml", testManifestYAML)

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, wantManifest(), m)
	assert.NoError(t, m.Validate(true))
}

func TestLoadManifest_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "estate.json", `{
  "vault_id": 1,
  "beneficiaries": [{"beneficiary": "bob", "share": 5000}, {"beneficiary": "carol", "share": 5000}],
  "conditions": [{"event_type": "death", "threshold": 1, "proof_required": true}]
}`)

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, wantManifest(), m)
}

func TestLoadManifest_CUE(t *testing.T) {
	path := writeFile(t, t.TempDir(), "estate.cue", `
plan: {
	vault_id: 1
	beneficiaries: [
		{beneficiary: "bob", share:   5000},
		{beneficiary: "carol", share: 10000 - 5000},
	]
	conditions: [{event_type: "death", threshold: 1, proof_required: true}]
}
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, wantManifest(), m)
}

func TestLoadManifest_CUEDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "estate.cue", `
beneficiaries: [{beneficiary: "bob", share: 10000}]
conditions: [{event_type: "death", threshold: 2}]
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), m.VaultID)
	assert.False(t, m.Conditions[0].ProofRequired)
	assert.NoError(t, m.Validate(false))
	assert.ErrorIs(t, m.Validate(true), plan.ErrInvalidVaultID)
}

func TestLoadManifest_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing file", filepath.Join(dir, "nope.yaml"), ErrCodeNotFound},
		{"directory", dir, ErrCodeNotFound},
		{"unknown yaml field", writeFile(t, dir, "typo.yaml", "vault: 1\n"), ErrCodeParseFailed},
		{"bad yaml type", writeFile(t, dir, "type.yaml", "vault_id: many\n"), ErrCodeParseFailed},
		{"cue schema violation", writeFile(t, dir, "bad.cue", `beneficiaries: [{beneficiary: "bob", share: "all"}]`+"\nconditions: []\n"), ErrCodeInvalid},
		{"cue unknown field", writeFile(t, dir, "extra.cue", "beneficiaries: []\nconditions: []\nexecutor: \"x\"\n"), ErrCodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManifest(tt.path)
			require.Error(t, err)
			var le *LoadError
			require.True(t, errors.As(err, &le), "got %T: %v", err, err)
			assert.Equal(t, tt.code, le.Code)
		})
	}
}

func TestManifestValidate(t *testing.T) {
	m := wantManifest()
	m.Beneficiaries[1].Share = 4000
	assert.ErrorIs(t, m.Validate(true), plan.ErrInvalidAllocation)

	m = wantManifest()
	m.Conditions[0].Threshold = 0
	assert.ErrorIs(t, m.Validate(true), plan.ErrInvalidCondition)
}

func TestLoadErrorFormat(t *testing.T) {
	err := &LoadError{Code: ErrCodeNotFound, Message: "manifest not found: x"}
	assert.Equal(t, "E005: manifest not found: x", err.Error())
}
