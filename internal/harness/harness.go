package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/bequest/internal/lifecycle"
	"github.com/roach88/bequest/internal/plan"
	"github.com/roach88/bequest/internal/store"
	"github.com/roach88/bequest/internal/testutil"
)

// DefaultOracle is the oracle collaborator identity when a scenario names
// none.
const DefaultOracle plan.Identity = "oracle"

// Harness drives one scenario against a real engine.
type Harness struct {
	store  *store.Store
	engine *lifecycle.Engine
	stubs  *testutil.Stubs
	logger *slog.Logger
}

// Run executes a scenario on a fresh in-memory store and returns the result.
// The error is reserved for infrastructure failures; a step or assertion
// that does not hold is reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	oracle := scenario.Oracle
	if oracle == "" {
		oracle = DefaultOracle
	}
	stubs := testutil.NewStubs(oracle)
	if len(scenario.Registry) > 0 {
		stubs.Register(scenario.Registry...)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := []lifecycle.Option{
		lifecycle.WithLogger(logger),
		lifecycle.WithTokenGenerator(testutil.NewSequenceGenerator("req")),
		lifecycle.WithClock(lifecycle.NewClock()),
	}
	if scenario.Capacity != nil {
		opts = append(opts, lifecycle.WithPlanCapacity(*scenario.Capacity))
	}
	eng, err := lifecycle.New(ctx, st, lifecycle.Collaborators{
		Registry:   stubs,
		Encryptor:  stubs,
		Vault:      stubs,
		Oracle:     stubs,
		Dispatcher: stubs,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}

	h := &Harness{store: st, engine: eng, stubs: stubs, logger: logger}
	result := NewResult()

	for i, step := range scenario.Steps {
		outcome, err := h.executeStep(ctx, i, step)
		if err != nil {
			return nil, err
		}
		result.Steps = append(result.Steps, outcome)
		if msg := checkExpect(outcome, step.Expect); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Op, msg))
		}
	}

	result.Events, err = eng.AllEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	for _, msg := range EvaluateAssertions(ctx, eng, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep applies one step with its failure switches in place. Only
// infrastructure errors are returned; engine rejections are the outcome.
func (h *Harness) executeStep(ctx context.Context, index int, step Step) (StepOutcome, error) {
	for name, raw := range step.Fail {
		mode, err := testutil.ParseMode(raw)
		if err != nil {
			return StepOutcome{}, fmt.Errorf("steps[%d]: %w", index, err)
		}
		h.stubs.Set(name, mode)
	}
	defer func() {
		for name := range step.Fail {
			h.stubs.Set(name, testutil.ModeOK)
		}
	}()

	outcome := StepOutcome{Index: index, Op: step.Op, Caller: step.Caller}
	var err error
	switch step.Op {
	case lifecycle.OpCreatePlan:
		outcome.Value, err = h.engine.CreatePlan(ctx, step.Caller, step.Beneficiaries, step.Conditions, step.VaultID)
	case lifecycle.OpUpdatePlan:
		err = h.engine.UpdatePlan(ctx, step.Caller, step.PlanID, step.Beneficiaries, step.Conditions)
	case lifecycle.OpExecutePlan:
		err = h.engine.ExecutePlan(ctx, step.Caller, step.PlanID, []byte(step.Proof))
	case lifecycle.OpClaimShare:
		outcome.Value, err = h.engine.ClaimShare(ctx, step.Caller, step.PlanID)
	case lifecycle.OpSetOracle:
		err = h.engine.SetOracle(ctx, step.Caller, step.Oracle)
	case lifecycle.OpSetExecutionFee:
		err = h.engine.SetExecutionFee(ctx, step.Caller, step.Fee)
	default:
		return StepOutcome{}, fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if err == nil {
		outcome.OK = true
		h.logger.Debug("step applied", "step", index, "op", step.Op, "caller", step.Caller)
		return outcome, nil
	}

	var pe *plan.Error
	if !errors.As(err, &pe) {
		return StepOutcome{}, fmt.Errorf("steps[%d] %s: %w", index, step.Op, err)
	}
	outcome.Code = pe.Code
	outcome.Error = err.Error()
	return outcome, nil
}

// checkExpect compares an outcome with its expectation and describes any
// mismatch.
func checkExpect(got StepOutcome, want *Expect) string {
	if want == nil {
		want = &Expect{}
	}
	switch {
	case want.Error == "" && !got.OK:
		return fmt.Sprintf("expected success, got %s", got.Error)
	case want.Error != "" && got.OK:
		return fmt.Sprintf("expected %s, got success", want.Error)
	case want.Error != "" && got.Code != want.Error:
		return fmt.Sprintf("expected %s, got %s", want.Error, got.Code)
	case want.Result != nil && got.OK && got.Value != *want.Result:
		return fmt.Sprintf("expected result %d, got %d", *want.Result, got.Value)
	}
	return ""
}
