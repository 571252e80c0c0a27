package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/roach88/bequest/internal/plan"
)

// VaultState is the custody record of one vault.
type VaultState struct {
	ID    uint64        `json:"id"`
	Owner plan.Identity `json:"owner,omitempty"`

	Locked bool   `json:"locked"`
	PlanID uint64 `json:"plan_id,omitempty"`

	// Released is the basis points paid out per beneficiary.
	Released map[plan.Identity]uint64 `json:"released,omitempty"`
}

// ReleasedTotal is the sum of all releases.
func (v VaultState) ReleasedTotal() uint64 {
	var total uint64
	for _, amount := range v.Released {
		total += amount
	}
	return total
}

// MemoryVault custodies provisioned vaults in memory.
//
// A vault must be provisioned before it can be locked. It locks to one plan
// for good and releases at most the whole allocation. When a path is set every
// change is written through to a JSON file, replacing it atomically.
//
// Thread-safety: safe for concurrent use.
type MemoryVault struct {
	mu     sync.Mutex
	vaults map[uint64]*VaultState
	path   string
}

// NewMemoryVault creates an empty, unpersisted vault custodian.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{vaults: make(map[uint64]*VaultState)}
}

// OpenMemoryVault loads vault state from path, creating the file's directory
// if needed. A missing file starts empty.
func OpenMemoryVault(path string) (*MemoryVault, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("vault state dir: %w", err)
	}
	v := NewMemoryVault()
	v.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vault state: %w", err)
	}

	var states []VaultState
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("decode vault state %s: %w", path, err)
	}
	for i := range states {
		st := states[i]
		v.vaults[st.ID] = &st
	}
	return v, nil
}

// Provision makes a vault available for locking. Provisioning an existing
// vault is a no-op.
func (v *MemoryVault) Provision(id uint64, owner plan.Identity) error {
	if id == 0 {
		return errors.New("vault id 0 is reserved")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.vaults[id]; ok {
		return nil
	}
	v.vaults[id] = &VaultState{ID: id, Owner: owner}
	return v.saveLocked()
}

// State returns a copy of a vault's record.
func (v *MemoryVault) State(id uint64) (VaultState, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	st, ok := v.vaults[id]
	if !ok {
		return VaultState{}, false
	}
	return st.clone(), true
}

// States returns every vault ordered by id.
func (v *MemoryVault) States() []VaultState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Lock binds an unlocked vault to planID. Unknown vaults, vaults owned by
// someone else and vaults already locked are refused.
func (v *MemoryVault) Lock(_ context.Context, vaultID uint64, owner plan.Identity, planID uint64) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	st, ok := v.vaults[vaultID]
	if !ok || st.Locked {
		return false, nil
	}
	if st.Owner != "" && st.Owner != owner {
		return false, nil
	}
	st.Locked = true
	st.PlanID = planID
	if err := v.saveLocked(); err != nil {
		st.Locked, st.PlanID = false, 0
		return false, err
	}
	return true, nil
}

// Release pays amount to beneficiary from a locked vault. It refuses once the
// cumulative release would exceed the whole allocation.
func (v *MemoryVault) Release(_ context.Context, vaultID uint64, beneficiary plan.Identity, amount uint64) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	st, ok := v.vaults[vaultID]
	if !ok || !st.Locked {
		return false, nil
	}
	if amount > plan.TotalShareBPS || st.ReleasedTotal()+amount > plan.TotalShareBPS {
		return false, nil
	}
	if st.Released == nil {
		st.Released = make(map[plan.Identity]uint64)
	}
	prev := st.Released[beneficiary]
	st.Released[beneficiary] = prev + amount
	if err := v.saveLocked(); err != nil {
		st.Released[beneficiary] = prev
		return false, err
	}
	return true, nil
}

func (st *VaultState) clone() VaultState {
	out := *st
	if st.Released != nil {
		out.Released = make(map[plan.Identity]uint64, len(st.Released))
		for k, a := range st.Released {
			out.Released[k] = a
		}
	}
	return out
}

func (v *MemoryVault) snapshotLocked() []VaultState {
	out := make([]VaultState, 0, len(v.vaults))
	for _, st := range v.vaults {
		out = append(out, st.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// saveLocked writes the state file through a temporary file and a rename, so
// a crash leaves either the old file or the new one. Caller holds mu.
func (v *MemoryVault) saveLocked() error {
	if v.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(v.snapshotLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode vault state: %w", err)
	}
	tmp := v.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write vault state: %w", err)
	}
	if err := os.Rename(tmp, v.path); err != nil {
		return fmt.Errorf("replace vault state: %w", err)
	}
	return nil
}
