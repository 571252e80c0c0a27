package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/bequest/internal/ir"
	"github.com/roach88/bequest/internal/plan"
	"github.com/roach88/bequest/internal/store"
)

// DefaultPlanCapacity is the plan capacity of a freshly created store.
const DefaultPlanCapacity = 1000

// Operation names used for logging and metrics.
const (
	OpCreatePlan      = "create_plan"
	OpUpdatePlan      = "update_plan"
	OpExecutePlan     = "execute_plan"
	OpClaimShare      = "claim_share"
	OpSetOracle       = "set_oracle"
	OpSetExecutionFee = "set_execution_fee"
)

// Engine is the plan lifecycle state machine.
//
// Every mutating operation runs under one mutex and inside one store
// transaction. Validation, authorization, collaborator calls and writes all
// happen inside that transaction; the first failure rolls everything back.
// Operations are therefore totally ordered and each one sees the committed
// result of every earlier one.
//
// Thread-safety: all methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	store  *store.Store
	collab Collaborators
	clock  *Clock
	tokens TokenGenerator

	logger   *slog.Logger
	recorder Recorder
	capacity *uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRecorder sets the metrics recorder. Default: discard.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithTokenGenerator sets the request token generator. Default: UUIDv7.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// WithClock replaces the clock. By default the engine resumes from the last
// seq in the audit log.
func WithClock(c *Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithPlanCapacity stores a new plan capacity when the engine starts.
func WithPlanCapacity(n uint64) Option {
	return func(e *Engine) { e.capacity = &n }
}

// New creates an Engine over s.
//
// The clock resumes from the store's last audit seq so timestamps keep
// increasing across restarts.
func New(ctx context.Context, s *store.Store, c Collaborators, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, errors.New("lifecycle: store is required")
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("lifecycle: %w", err)
	}

	e := &Engine{
		store:    s,
		collab:   c,
		tokens:   UUIDv7Generator{},
		logger:   slog.Default(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.clock == nil {
		last, err := s.Audit().LastSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("lifecycle: resume clock: %w", err)
		}
		e.clock = NewClockAt(last)
	}

	if e.capacity != nil {
		if err := s.WithTx(ctx, func(tx *store.Tx) error {
			return tx.Config.SetPlanCapacity(ctx, *e.capacity)
		}); err != nil {
			return nil, fmt.Errorf("lifecycle: %w", err)
		}
	}

	return e, nil
}

// Now returns the logical time of the last committed operation.
func (e *Engine) Now() int64 {
	return e.clock.Current()
}

// auditRecord is what an operation body reports on success.
type auditRecord struct {
	kind    string
	planID  int64
	payload ir.Object
}

// apply runs body as one atomic operation.
//
// body receives the open transaction and the logical time the operation will
// commit at. If body or the audit append fails, the transaction is rolled back
// and the clock does not advance.
func (e *Engine) apply(
	ctx context.Context,
	op string,
	caller plan.Identity,
	body func(tx *store.Tx, now int64) (auditRecord, error),
) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	token := e.tokens.Generate()
	now := e.clock.Current() + 1

	var rec auditRecord
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		rec, err = body(tx, now)
		if err != nil {
			return err
		}
		ev, err := newAuditEvent(rec, now, caller, token)
		if err != nil {
			return err
		}
		return tx.Audit.Append(ctx, ev)
	})
	e.recorder.Observe(ctx, op, err == nil, time.Since(start))

	if err != nil {
		e.logRejection(ctx, op, caller, token, err)
		return err
	}

	e.clock.Next()
	e.logger.InfoContext(ctx, "operation committed",
		"op", op,
		"caller", caller,
		"plan_id", rec.planID,
		"seq", now,
		"request", token,
	)
	return nil
}

func (e *Engine) logRejection(ctx context.Context, op string, caller plan.Identity, token string, err error) {
	var pe *plan.Error
	if errors.As(err, &pe) {
		attrs := []any{"op", op, "caller", caller, "code", pe.Code, "request", token, "error", err}
		if pe.PlanID != nil {
			attrs = append(attrs, "plan_id", *pe.PlanID)
		}
		e.logger.WarnContext(ctx, "operation rejected", attrs...)
		return
	}
	e.logger.ErrorContext(ctx, "operation failed",
		"op", op,
		"caller", caller,
		"request", token,
		"error", err,
	)
}

func newAuditEvent(rec auditRecord, seq int64, caller plan.Identity, token string) (ir.AuditEvent, error) {
	id, err := ir.EventID(rec.kind, rec.planID, rec.payload, seq)
	if err != nil {
		return ir.AuditEvent{}, fmt.Errorf("audit event: %w", err)
	}
	return ir.AuditEvent{
		ID:            id,
		Seq:           seq,
		Kind:          rec.kind,
		PlanID:        rec.planID,
		Payload:       rec.payload,
		Caller:        string(caller),
		RequestToken:  token,
		EngineVersion: ir.EngineVersion,
	}, nil
}

// loadPlan fetches a plan inside tx, reporting absence as INVALID_PLAN.
func loadPlan(ctx context.Context, tx *store.Tx, id uint64) (plan.Plan, error) {
	p, ok, err := tx.Plans.Get(ctx, id)
	if err != nil {
		return plan.Plan{}, err
	}
	if !ok {
		return plan.Plan{}, plan.Errorf(plan.CodeInvalidPlan, "plan not found").ForPlan(id)
	}
	return p, nil
}

// planInt converts a plan id for audit payloads. Plan ids are bounded by the
// capacity, which is far below the int64 range in practice.
func planInt(id uint64) ir.Int {
	return ir.Int(int64(id))
}
