package harness

import (
	"github.com/roach88/bequest/internal/ir"
	"github.com/roach88/bequest/internal/plan"
)

// StepOutcome is what one scenario step actually did.
type StepOutcome struct {
	Index  int           `json:"index"`
	Op     string        `json:"op"`
	Caller plan.Identity `json:"caller"`
	OK     bool          `json:"ok"`
	Code   plan.Code     `json:"code,omitempty"`
	// Value is the plan id for create_plan and the share for claim_share.
	Value uint64 `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step matched its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	Steps []StepOutcome `json:"steps"`

	// Events is the whole audit log after the run, in seq order.
	Events []ir.AuditEvent `json:"events"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing, empty result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepOutcome{},
		Events: []ir.AuditEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
