package lifecycle

import (
	"context"
	"slices"

	"github.com/roach88/bequest/internal/ir"
	"github.com/roach88/bequest/internal/plan"
	"github.com/roach88/bequest/internal/store"
)

// CreatePlan registers a new Active plan owned by caller and returns its id.
//
// Checks run in this order and the first failure wins:
//  1. oracle configured (UNAUTHORIZED)
//  2. plan count below capacity (INVALID_PLAN)
//  3. caller registered (UNAUTHORIZED)
//  4. beneficiaries, conditions, vault id
//  5. ciphertext produced for the beneficiaries and within bounds (ENCRYPTION_FAILED)
//  6. vault locked under the new plan (INVALID_VAULT_ID)
//
// The plan record, the vault lock and the counter increment commit together.
func (e *Engine) CreatePlan(
	ctx context.Context,
	caller plan.Identity,
	beneficiaries []plan.Beneficiary,
	conditions []plan.Condition,
	vaultID uint64,
) (uint64, error) {
	var id uint64
	err := e.apply(ctx, OpCreatePlan, caller, func(tx *store.Tx, now int64) (auditRecord, error) {
		cfg, err := tx.Config.Load(ctx)
		if err != nil {
			return auditRecord{}, err
		}
		if !cfg.OracleSet() {
			return auditRecord{}, plan.Errorf(plan.CodeUnauthorized, "no oracle configured")
		}
		if cfg.PlanCount >= cfg.PlanCapacity {
			return auditRecord{}, plan.Errorf(plan.CodeInvalidPlan, "plan capacity %d reached", cfg.PlanCapacity)
		}

		ok, err := e.collab.Registry.IsRegistered(ctx, caller)
		if err := refused(ok, err, plan.CodeUnauthorized, "caller %q is not registered", caller); err != nil {
			return auditRecord{}, err
		}

		if err := plan.ValidateBeneficiaries(beneficiaries); err != nil {
			return auditRecord{}, err
		}
		if err := plan.ValidateConditions(conditions); err != nil {
			return auditRecord{}, err
		}
		if err := plan.ValidateVaultID(vaultID); err != nil {
			return auditRecord{}, err
		}

		id = cfg.PlanCount
		ciphertext, err := e.seal(ctx, id, vaultID, beneficiaries)
		if err != nil {
			return auditRecord{}, err
		}

		p := plan.Plan{
			ID:                  id,
			Creator:             caller,
			Beneficiaries:       slices.Clone(beneficiaries),
			EncryptedAllocation: ciphertext,
			Conditions:          slices.Clone(conditions),
			Status:              plan.StatusActive,
			CreatedAt:           now,
			UpdatedAt:           now,
			VaultID:             vaultID,
			Version:             1,
		}
		if err := tx.Plans.Insert(ctx, p); err != nil {
			return auditRecord{}, err
		}

		ok, err = e.collab.Vault.Lock(ctx, vaultID, caller, id)
		if err := refused(ok, err, plan.CodeInvalidVaultID, "vault %d refused lock", vaultID); err != nil {
			return auditRecord{}, err.ForPlan(id)
		}

		if _, err := tx.Config.IncrementPlanCount(ctx); err != nil {
			return auditRecord{}, err
		}

		return auditRecord{
			kind:    ir.EventPlanCreated,
			planID:  int64(id),
			payload: ir.Object{"id": planInt(id)},
		}, nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// seal asks the encryptor for the allocation ciphertext and bounds it.
func (e *Engine) seal(ctx context.Context, planID, vaultID uint64, bs []plan.Beneficiary) ([]byte, error) {
	descriptor, err := plan.Descriptor(planID, vaultID, bs)
	if err != nil {
		return nil, plan.Errorf(plan.CodeEncryptionFailed, "build allocation descriptor").ForPlan(planID).Wrap(err)
	}
	ciphertext, err := e.collab.Encryptor.Encrypt(ctx, descriptor, plan.Recipients(bs))
	if err != nil {
		return nil, plan.Errorf(plan.CodeEncryptionFailed, "encrypt allocation").ForPlan(planID).Wrap(err)
	}
	if err := plan.ValidateCiphertext(ciphertext); err != nil {
		return nil, err
	}
	return ciphertext, nil
}
