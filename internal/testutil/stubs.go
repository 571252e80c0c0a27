package testutil

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/bequest/internal/plan"
)

// Step names one collaborator call so tests can make it fail.
type Step string

const (
	StepRegistry       Step = "registry"
	StepEncrypt        Step = "encrypt"
	StepDecrypt        Step = "decrypt"
	StepLock           Step = "lock"
	StepRelease        Step = "release"
	StepVerify         Step = "verify"
	StepOracleIdentity Step = "oracle_identity"
	StepDispatch       Step = "dispatch"
)

// Steps lists every step in call order of a full lifecycle.
var Steps = []Step{
	StepRegistry, StepEncrypt, StepLock, StepOracleIdentity,
	StepVerify, StepDispatch, StepDecrypt, StepRelease,
}

// Mode is how a stubbed step answers.
type Mode int

const (
	// ModeOK answers normally.
	ModeOK Mode = iota
	// ModeRefuse answers "no" (false, nil). For StepEncrypt it returns an
	// empty ciphertext; for StepOracleIdentity an empty identity.
	ModeRefuse
	// ModeError fails with ErrStub.
	ModeError
	// ModeOversize makes StepEncrypt return a ciphertext over the size limit.
	ModeOversize
)

// ParseMode parses "ok", "refuse", "error" or "oversize".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "ok":
		return ModeOK, nil
	case "refuse":
		return ModeRefuse, nil
	case "error":
		return ModeError, nil
	case "oversize":
		return ModeOversize, nil
	}
	return ModeOK, fmt.Errorf("unknown stub mode %q", s)
}

// ErrStub is returned by a step set to ModeError.
var ErrStub = errors.New("stub collaborator failure")

// Release records one vault release.
type Release struct {
	VaultID     uint64
	Beneficiary plan.Identity
	Amount      uint64
}

// Stubs implements every collaborator capability in memory with
// programmable failures. The zero value is not usable; call NewStubs.
//
// Registry: Registered is the allow list; nil admits everyone.
// Encryptor: ciphertext is "sealed:" + descriptor; recipients are remembered
// per ciphertext for VerifyDecryption.
// Vault: a vault can be locked by one plan at a time.
// Oracle: any proof verifies unless StepVerify is switched.
type Stubs struct {
	mu sync.Mutex

	Registered map[plan.Identity]bool
	Oracle     plan.Identity

	modes      map[Step]Mode
	recipients map[string][]plan.Identity
	locks      map[uint64]uint64
	releases   []Release
	dispatched []uint64
	calls      []Step
}

// NewStubs creates stubs whose oracle identity is oracle.
func NewStubs(oracle plan.Identity) *Stubs {
	return &Stubs{
		Oracle:     oracle,
		modes:      make(map[Step]Mode),
		recipients: make(map[string][]plan.Identity),
		locks:      make(map[uint64]uint64),
	}
}

// Set switches how step answers.
func (s *Stubs) Set(step Step, m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[step] = m
}

// Register adds identities to the registry allow list.
func (s *Stubs) Register(ids ...plan.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Registered == nil {
		s.Registered = make(map[plan.Identity]bool)
	}
	for _, id := range ids {
		s.Registered[id] = true
	}
}

// Calls returns the steps invoked so far, in order.
func (s *Stubs) Calls() []Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Releases returns the vault releases so far.
func (s *Stubs) Releases() []Release {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.releases)
}

// Dispatched returns the plan ids claims were opened for.
func (s *Stubs) Dispatched() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.dispatched)
}

// LockedBy returns the plan holding vaultID.
func (s *Stubs) LockedBy(vaultID uint64) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.locks[vaultID]
	return p, ok
}

// enter records the call and returns the step's mode. Caller holds mu.
func (s *Stubs) enter(step Step) Mode {
	s.calls = append(s.calls, step)
	return s.modes[step]
}

// answer maps a mode to the (bool, error) collaborator result.
func answer(m Mode) (bool, error) {
	switch m {
	case ModeRefuse:
		return false, nil
	case ModeError:
		return false, ErrStub
	}
	return true, nil
}

func (s *Stubs) IsRegistered(_ context.Context, who plan.Identity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := answer(s.enter(StepRegistry)); !ok {
		return ok, err
	}
	return s.Registered == nil || s.Registered[who], nil
}

func (s *Stubs) Encrypt(_ context.Context, descriptor []byte, recipients []plan.Identity) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.enter(StepEncrypt) {
	case ModeRefuse:
		return []byte{}, nil
	case ModeError:
		return nil, ErrStub
	case ModeOversize:
		return make([]byte, plan.MaxCiphertextSize+1), nil
	}
	ct := append([]byte("sealed:"), descriptor...)
	s.recipients[string(ct)] = slices.Clone(recipients)
	return ct, nil
}

func (s *Stubs) VerifyDecryption(_ context.Context, who plan.Identity, ciphertext []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := answer(s.enter(StepDecrypt)); !ok {
		return ok, err
	}
	return slices.Contains(s.recipients[string(ciphertext)], who), nil
}

func (s *Stubs) Lock(_ context.Context, vaultID uint64, _ plan.Identity, planID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := answer(s.enter(StepLock)); !ok {
		return ok, err
	}
	if _, held := s.locks[vaultID]; held {
		return false, nil
	}
	s.locks[vaultID] = planID
	return true, nil
}

func (s *Stubs) Release(_ context.Context, vaultID uint64, beneficiary plan.Identity, amount uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := answer(s.enter(StepRelease)); !ok {
		return ok, err
	}
	s.releases = append(s.releases, Release{VaultID: vaultID, Beneficiary: beneficiary, Amount: amount})
	return true, nil
}

func (s *Stubs) VerifyCondition(_ context.Context, _ []plan.Condition, _ []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return answer(s.enter(StepVerify))
}

func (s *Stubs) CurrentOracleIdentity(context.Context) (plan.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.enter(StepOracleIdentity) {
	case ModeRefuse:
		return "", nil
	case ModeError:
		return "", ErrStub
	}
	return s.Oracle, nil
}

func (s *Stubs) InitiateClaims(_ context.Context, planID uint64, _ []plan.Beneficiary) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := answer(s.enter(StepDispatch)); !ok {
		return ok, err
	}
	s.dispatched = append(s.dispatched, planID)
	return true, nil
}
