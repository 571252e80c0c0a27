package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bequest/internal/lifecycle"
	"github.com/roach88/bequest/internal/plan"
	"github.com/roach88/bequest/internal/testutil"
)

// Scenario is one conformance scenario.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Oracle is the identity the oracle collaborator reports. Default "oracle".
	Oracle plan.Identity `yaml:"oracle,omitempty"`

	// Registry restricts plan creation to these identities. Empty admits
	// everyone.
	Registry []plan.Identity `yaml:"registry,omitempty"`

	// Capacity overrides the plan capacity.
	Capacity *uint64 `yaml:"capacity,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one engine operation.
type Step struct {
	Op     string        `yaml:"op"`
	Caller plan.Identity `yaml:"caller"`

	PlanID        uint64             `yaml:"plan_id,omitempty"`
	VaultID       uint64             `yaml:"vault_id,omitempty"`
	Beneficiaries []plan.Beneficiary `yaml:"beneficiaries,omitempty"`
	Conditions    []plan.Condition   `yaml:"conditions,omitempty"`
	Proof         string             `yaml:"proof,omitempty"`
	Oracle        plan.Identity      `yaml:"oracle,omitempty"`
	Fee           uint64             `yaml:"fee,omitempty"`

	// Fail switches collaborators for this step only, e.g. {lock: refuse}.
	Fail map[testutil.Step]string `yaml:"fail,omitempty"`

	// Expect is the required outcome. Nil means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the required outcome of a step.
type Expect struct {
	// Error is the required error code. Empty means success.
	Error plan.Code `yaml:"error,omitempty"`
	// Result is the required plan id (create_plan) or share (claim_share).
	Result *uint64 `yaml:"result,omitempty"`
}

// Assertion checks final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	PlanID      *uint64       `yaml:"plan_id,omitempty"`
	Beneficiary plan.Identity `yaml:"beneficiary,omitempty"`

	// Expect is a subset match on the JSON form of the plan, claim or config.
	Expect map[string]any `yaml:"expect,omitempty"`

	Count *uint64  `yaml:"count,omitempty"`
	Kinds []string `yaml:"kinds,omitempty"`
}

// Assertion types.
const (
	AssertPlan       = "plan"
	AssertClaim      = "claim"
	AssertPlanCount  = "plan_count"
	AssertAuditKinds = "audit_kinds"
	AssertConfig     = "config"
)

// Ops accepted in steps.
var ops = map[string]bool{
	lifecycle.OpCreatePlan:      true,
	lifecycle.OpUpdatePlan:      true,
	lifecycle.OpExecutePlan:     true,
	lifecycle.OpClaimShare:      true,
	lifecycle.OpSetOracle:       true,
	lifecycle.OpSetExecutionFee: true,
}

// LoadScenario reads a scenario file. Unknown fields are rejected so typos
// fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if !ops[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		for name, mode := range step.Fail {
			if !knownStep(name) {
				return fmt.Errorf("steps[%d].fail: unknown collaborator step %q", i, name)
			}
			if _, err := testutil.ParseMode(mode); err != nil {
				return fmt.Errorf("steps[%d].fail.%s: %w", i, name, err)
			}
		}
		if step.Expect != nil && step.Expect.Error != "" && !knownCode(step.Expect.Error) {
			return fmt.Errorf("steps[%d].expect: unknown error code %q", i, step.Expect.Error)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertPlan:
		if a.PlanID == nil || len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: plan_id and expect are required for plan", index)
		}
	case AssertClaim:
		if a.PlanID == nil || a.Beneficiary == "" || len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: plan_id, beneficiary and expect are required for claim", index)
		}
	case AssertPlanCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for plan_count", index)
		}
	case AssertAuditKinds:
		if a.Kinds == nil {
			return fmt.Errorf("assertions[%d]: kinds is required for audit_kinds", index)
		}
	case AssertConfig:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for config", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func knownStep(s testutil.Step) bool {
	for _, known := range testutil.Steps {
		if s == known {
			return true
		}
	}
	return false
}

func knownCode(c plan.Code) bool {
	for _, known := range plan.Codes {
		if c == known {
			return true
		}
	}
	return false
}
