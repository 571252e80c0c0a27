package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/bequest/internal/ir"
)

// AuditLog is the append-only record of committed operations.
type AuditLog struct {
	q querier
}

// Append inserts an audit event. Events are never updated or deleted.
func (a AuditLog) Append(ctx context.Context, ev ir.AuditEvent) error {
	payloadJSON, err := marshalPayload(ev.Payload)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}

	_, err = a.q.ExecContext(ctx, `
		INSERT INTO audit_events
		(id, seq, kind, plan_id, payload, caller, request_token, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ID,
		ev.Seq,
		ev.Kind,
		ev.PlanID,
		payloadJSON,
		ev.Caller,
		ev.RequestToken,
		ev.EngineVersion,
	)
	if err != nil {
		return fmt.Errorf("append audit event %s: %w", ev.Kind, err)
	}
	return nil
}

// ForPlan returns the events of one plan in seq order. Pass ir.NoPlan for
// configuration events.
func (a AuditLog) ForPlan(ctx context.Context, planID int64) ([]ir.AuditEvent, error) {
	return a.query(ctx, `
		SELECT id, seq, kind, plan_id, payload, caller, request_token, engine_version
		FROM audit_events
		WHERE plan_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, planID)
}

// All returns every event in seq order.
func (a AuditLog) All(ctx context.Context) ([]ir.AuditEvent, error) {
	return a.query(ctx, `
		SELECT id, seq, kind, plan_id, payload, caller, request_token, engine_version
		FROM audit_events
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// LastSeq returns the highest recorded seq, or 0 for an empty log. The engine
// resumes its logical clock from here.
func (a AuditLog) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := a.q.QueryRowContext(ctx, `SELECT MAX(seq) FROM audit_events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func (a AuditLog) query(ctx context.Context, query string, args ...any) ([]ir.AuditEvent, error) {
	rows, err := a.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := []ir.AuditEvent{}
	for rows.Next() {
		var (
			ev          ir.AuditEvent
			payloadJSON string
		)
		if err := rows.Scan(
			&ev.ID,
			&ev.Seq,
			&ev.Kind,
			&ev.PlanID,
			&payloadJSON,
			&ev.Caller,
			&ev.RequestToken,
			&ev.EngineVersion,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Payload, err = unmarshalPayload(payloadJSON)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
