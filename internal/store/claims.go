package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/bequest/internal/plan"
)

// ClaimLedger owns per-(plan, beneficiary) claim records. A record, once
// written, is never rewritten.
type ClaimLedger struct {
	q querier
}

// Record writes a claim. A second claim for the same (plan, beneficiary)
// fails on the primary key rather than overwriting the first.
func (l ClaimLedger) Record(ctx context.Context, c plan.Claim) error {
	_, err := l.q.ExecContext(ctx, `
		INSERT INTO beneficiary_claims (plan_id, beneficiary, claimed, claimed_at, share_received)
		VALUES (?, ?, ?, ?, ?)
	`,
		toSQL(c.PlanID),
		string(c.Beneficiary),
		boolToInt(c.Claimed),
		c.ClaimedAt,
		toSQL(c.ShareReceived),
	)
	if err != nil {
		return fmt.Errorf("record claim for plan %d beneficiary %q: %w", c.PlanID, c.Beneficiary, err)
	}
	return nil
}

// Get returns the claim record for (planID, who), if any.
func (l ClaimLedger) Get(ctx context.Context, planID uint64, who plan.Identity) (plan.Claim, bool, error) {
	row := l.q.QueryRowContext(ctx, `
		SELECT plan_id, beneficiary, claimed, claimed_at, share_received
		FROM beneficiary_claims
		WHERE plan_id = ? AND beneficiary = ?
	`, toSQL(planID), string(who))

	c, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return plan.Claim{}, false, nil
	}
	if err != nil {
		return plan.Claim{}, false, fmt.Errorf("get claim for plan %d: %w", planID, err)
	}
	return c, true, nil
}

// HasClaimed reports whether who already holds a claimed record on planID.
func (l ClaimLedger) HasClaimed(ctx context.Context, planID uint64, who plan.Identity) (bool, error) {
	c, ok, err := l.Get(ctx, planID, who)
	if err != nil {
		return false, err
	}
	return ok && c.Claimed, nil
}

// ForPlan returns every claim on a plan ordered by beneficiary.
func (l ClaimLedger) ForPlan(ctx context.Context, planID uint64) ([]plan.Claim, error) {
	rows, err := l.q.QueryContext(ctx, `
		SELECT plan_id, beneficiary, claimed, claimed_at, share_received
		FROM beneficiary_claims
		WHERE plan_id = ?
		ORDER BY beneficiary COLLATE BINARY ASC
	`, toSQL(planID))
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	claims := []plan.Claim{}
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return claims, nil
}

func scanClaim(row rowScanner) (plan.Claim, error) {
	var (
		c             plan.Claim
		planID, share int64
		beneficiary   string
		claimed       int
	)
	if err := row.Scan(&planID, &beneficiary, &claimed, &c.ClaimedAt, &share); err != nil {
		return plan.Claim{}, err
	}
	c.PlanID = fromSQL(planID)
	c.Beneficiary = plan.Identity(beneficiary)
	c.Claimed = claimed != 0
	c.ShareReceived = fromSQL(share)
	return c, nil
}
