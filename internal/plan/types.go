// Package plan holds the plan data model and the pure rules over it: the
// Validator checks, the authorization predicates and the error kinds every
// lifecycle operation reports.
//
// Nothing in this package performs I/O or holds state. The lifecycle engine
// composes these checks with the store and the external collaborators.
package plan

import (
	"math"
	"slices"
)

// Identity is an opaque caller or beneficiary principal.
type Identity string

// Status is the lifecycle state of a plan.
type Status string

const (
	StatusActive   Status = "Active"
	StatusExecuted Status = "Executed"

	// StatusDisputed is reserved. No operation produces it; it exists so
	// stored records and clients can round-trip the value.
	StatusDisputed Status = "Disputed"
)

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusExecuted, StatusDisputed:
		return true
	}
	return false
}

// Limits on plan contents.
const (
	TotalShareBPS     = 10000
	MaxBeneficiaries  = 20
	MaxConditions     = 10
	MaxEventTypeLen   = 32
	MaxCiphertextSize = 2048
	MaxProofSize      = 512

	// MaxThreshold and MaxVaultID keep values inside the signed 64-bit range
	// of canonical JSON integers.
	MaxThreshold = math.MaxInt64
	MaxVaultID   = math.MaxInt64
)

// Beneficiary is one recipient and the basis points of the allocation they
// receive.
type Beneficiary struct {
	Beneficiary Identity `json:"beneficiary" yaml:"beneficiary"`
	Share       uint64   `json:"share" yaml:"share"`
}

// Condition is a release condition the oracle must confirm.
type Condition struct {
	EventType     string `json:"event_type" yaml:"event_type"`
	Threshold     uint64 `json:"threshold" yaml:"threshold"`
	ProofRequired bool   `json:"proof_required" yaml:"proof_required"`
}

// Plan is a conditional release agreement keyed by a sequential ID.
type Plan struct {
	ID                  uint64        `json:"id"`
	Creator             Identity      `json:"creator"`
	Beneficiaries       []Beneficiary `json:"beneficiaries"`
	EncryptedAllocation []byte        `json:"encrypted_allocation"`
	Conditions          []Condition   `json:"conditions"`
	Status              Status        `json:"status"`
	CreatedAt           int64         `json:"created_at"`
	UpdatedAt           int64         `json:"updated_at"`
	VaultID             uint64        `json:"vault_id"`
	Version             uint64        `json:"version"`
}

// ShareOf returns the share of the first beneficiary entry matching who.
func (p Plan) ShareOf(who Identity) (uint64, bool) {
	for _, b := range p.Beneficiaries {
		if b.Beneficiary == who {
			return b.Share, true
		}
	}
	return 0, false
}

// Recipients returns the beneficiary identities in list order.
func (p Plan) Recipients() []Identity {
	return Recipients(p.Beneficiaries)
}

// Clone returns a deep copy so callers cannot mutate records they do not own.
func (p Plan) Clone() Plan {
	p.Beneficiaries = slices.Clone(p.Beneficiaries)
	p.Conditions = slices.Clone(p.Conditions)
	p.EncryptedAllocation = slices.Clone(p.EncryptedAllocation)
	return p
}

// Execution records the oracle-confirmed execution of a plan. It exists if
// and only if the plan status is Executed.
type Execution struct {
	PlanID      uint64   `json:"plan_id"`
	ExecutedAt  int64    `json:"executed_at"`
	OracleProof []byte   `json:"oracle_proof"`
	Verified    bool     `json:"verified"`
	Executor    Identity `json:"executor"`
}

// Claim records a beneficiary's one-time claim. Absence means unclaimed.
type Claim struct {
	PlanID        uint64   `json:"plan_id"`
	Beneficiary   Identity `json:"beneficiary"`
	Claimed       bool     `json:"claimed"`
	ClaimedAt     int64    `json:"claimed_at"`
	ShareReceived uint64   `json:"share_received"`
}

// Config is the process-wide configuration row.
type Config struct {
	Oracle       Identity `json:"oracle,omitempty"`
	ExecutionFee uint64   `json:"execution_fee"`
	PlanCount    uint64   `json:"plan_count"`
	PlanCapacity uint64   `json:"plan_capacity"`
}

// OracleSet reports whether the set-once oracle identity has been configured.
func (c Config) OracleSet() bool {
	return c.Oracle != ""
}

// Recipients extracts the identities from a beneficiary list.
func Recipients(bs []Beneficiary) []Identity {
	out := make([]Identity, len(bs))
	for i, b := range bs {
		out[i] = b.Beneficiary
	}
	return out
}
