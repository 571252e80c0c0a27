package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/bequest/internal/plan"
)

// PlanStore owns plan and plan execution records.
type PlanStore struct {
	q querier
}

// Insert writes a new plan record. The id must not exist.
func (s PlanStore) Insert(ctx context.Context, p plan.Plan) error {
	benJSON, err := marshalBeneficiaries(p.Beneficiaries)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	condJSON, err := marshalConditions(p.Conditions)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO plans
		(id, creator, beneficiaries, encrypted_allocation, conditions, status,
		 created_at, updated_at, vault_id, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		toSQL(p.ID),
		string(p.Creator),
		benJSON,
		p.EncryptedAllocation,
		condJSON,
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
		toSQL(p.VaultID),
		toSQL(p.Version),
	)
	if err != nil {
		return fmt.Errorf("insert plan %d: %w", p.ID, err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing plan: beneficiaries,
// conditions, ciphertext, status, updated_at and version. Creator, vault and
// created_at are never touched.
func (s PlanStore) Update(ctx context.Context, p plan.Plan) error {
	benJSON, err := marshalBeneficiaries(p.Beneficiaries)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	condJSON, err := marshalConditions(p.Conditions)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE plans
		SET beneficiaries = ?, encrypted_allocation = ?, conditions = ?,
		    status = ?, updated_at = ?, version = ?
		WHERE id = ?
	`,
		benJSON,
		p.EncryptedAllocation,
		condJSON,
		string(p.Status),
		p.UpdatedAt,
		toSQL(p.Version),
		toSQL(p.ID),
	)
	if err != nil {
		return fmt.Errorf("update plan %d: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update plan %d: rows affected: %w", p.ID, err)
	}
	if n != 1 {
		return fmt.Errorf("update plan %d: %w", p.ID, sql.ErrNoRows)
	}
	return nil
}

// Get returns the plan with the given id. The boolean is false when no such
// plan exists.
func (s PlanStore) Get(ctx context.Context, id uint64) (plan.Plan, bool, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, creator, beneficiaries, encrypted_allocation, conditions, status,
		       created_at, updated_at, vault_id, version
		FROM plans
		WHERE id = ?
	`, toSQL(id))

	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return plan.Plan{}, false, nil
	}
	if err != nil {
		return plan.Plan{}, false, fmt.Errorf("get plan %d: %w", id, err)
	}
	return p, true, nil
}

// List returns every plan ordered by id.
func (s PlanStore) List(ctx context.Context) ([]plan.Plan, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, creator, beneficiaries, encrypted_allocation, conditions, status,
		       created_at, updated_at, vault_id, version
		FROM plans
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	plans := []plan.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return plans, nil
}

// InsertExecution writes the execution record for a plan. A second insert for
// the same plan fails on the primary key.
func (s PlanStore) InsertExecution(ctx context.Context, e plan.Execution) error {
	proof := e.OracleProof
	if proof == nil {
		proof = []byte{}
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO plan_executions (plan_id, executed_at, oracle_proof, verified, executor)
		VALUES (?, ?, ?, ?, ?)
	`,
		toSQL(e.PlanID),
		e.ExecutedAt,
		proof,
		boolToInt(e.Verified),
		string(e.Executor),
	)
	if err != nil {
		return fmt.Errorf("insert execution for plan %d: %w", e.PlanID, err)
	}
	return nil
}

// GetExecution returns the execution record of a plan, if any.
func (s PlanStore) GetExecution(ctx context.Context, planID uint64) (plan.Execution, bool, error) {
	var (
		e        plan.Execution
		id       int64
		verified int
		executor string
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT plan_id, executed_at, oracle_proof, verified, executor
		FROM plan_executions
		WHERE plan_id = ?
	`, toSQL(planID)).Scan(&id, &e.ExecutedAt, &e.OracleProof, &verified, &executor)
	if errors.Is(err, sql.ErrNoRows) {
		return plan.Execution{}, false, nil
	}
	if err != nil {
		return plan.Execution{}, false, fmt.Errorf("get execution for plan %d: %w", planID, err)
	}
	e.PlanID = fromSQL(id)
	e.Verified = verified != 0
	e.Executor = plan.Identity(executor)
	return e, true, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (plan.Plan, error) {
	var (
		p                    plan.Plan
		id, vaultID, version int64
		creator, status      string
		benJSON, condJSON    string
	)
	err := row.Scan(
		&id,
		&creator,
		&benJSON,
		&p.EncryptedAllocation,
		&condJSON,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&vaultID,
		&version,
	)
	if err != nil {
		return plan.Plan{}, err
	}

	p.Beneficiaries, err = unmarshalBeneficiaries(benJSON)
	if err != nil {
		return plan.Plan{}, err
	}
	p.Conditions, err = unmarshalConditions(condJSON)
	if err != nil {
		return plan.Plan{}, err
	}

	p.ID = fromSQL(id)
	p.Creator = plan.Identity(creator)
	p.Status = plan.Status(status)
	p.VaultID = fromSQL(vaultID)
	p.Version = fromSQL(version)
	return p, nil
}
