package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/bequest/internal/ir"
	"github.com/roach88/bequest/internal/lifecycle"
	"github.com/roach88/bequest/internal/plan"
)

// AssertionError describes one failed assertion.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the engine's final state
// and returns one message per failure.
func EvaluateAssertions(ctx context.Context, eng *lifecycle.Engine, result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertPlan:
			err = assertPlan(ctx, eng, a)
		case AssertClaim:
			err = assertClaim(ctx, eng, a)
		case AssertPlanCount:
			err = assertPlanCount(ctx, eng, a)
		case AssertAuditKinds:
			err = assertAuditKinds(result.Events, a)
		case AssertConfig:
			err = assertConfig(ctx, eng, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func assertPlan(ctx context.Context, eng *lifecycle.Engine, a Assertion) error {
	p, ok, err := eng.GetPlan(ctx, *a.PlanID)
	if err != nil {
		return err
	}
	if !ok {
		return &AssertionError{Type: AssertPlan, Expected: fmt.Sprintf("plan %d", *a.PlanID), Actual: "no such plan"}
	}
	return matchSubset(AssertPlan, p, a.Expect)
}

// assertClaim treats a missing claim record as {claimed: false}.
func assertClaim(ctx context.Context, eng *lifecycle.Engine, a Assertion) error {
	c, ok, err := eng.GetBeneficiaryClaim(ctx, *a.PlanID, a.Beneficiary)
	if err != nil {
		return err
	}
	if !ok {
		c = plan.Claim{PlanID: *a.PlanID, Beneficiary: a.Beneficiary}
	}
	return matchSubset(AssertClaim, c, a.Expect)
}

func assertPlanCount(ctx context.Context, eng *lifecycle.Engine, a Assertion) error {
	n, err := eng.GetPlanCount(ctx)
	if err != nil {
		return err
	}
	if n != *a.Count {
		return &AssertionError{Type: AssertPlanCount, Expected: fmt.Sprint(*a.Count), Actual: fmt.Sprint(n)}
	}
	return nil
}

// assertAuditKinds compares the kinds of one plan's events, or of every event
// when no plan id is given.
func assertAuditKinds(events []ir.AuditEvent, a Assertion) error {
	var got []string
	for _, ev := range events {
		if a.PlanID != nil && ev.PlanID != int64(*a.PlanID) {
			continue
		}
		got = append(got, ev.Kind)
	}
	if !slices.Equal(got, a.Kinds) {
		return &AssertionError{
			Type:     AssertAuditKinds,
			Expected: fmt.Sprint(a.Kinds),
			Actual:   fmt.Sprint(got),
		}
	}
	return nil
}

func assertConfig(ctx context.Context, eng *lifecycle.Engine, a Assertion) error {
	cfg, err := eng.GetConfig(ctx)
	if err != nil {
		return err
	}
	return matchSubset(AssertConfig, cfg, a.Expect)
}

// matchSubset compares the expected fields against the JSON form of actual.
// Extra fields in actual are ignored. Scalars compare by their printed form
// so YAML ints match JSON numbers.
func matchSubset(kind string, actual any, expected map[string]any) error {
	fields, err := jsonFields(actual)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var mismatches []string
	for _, k := range keys {
		got, ok := fields[k]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s missing", k))
			continue
		}
		if !valuesEqual(got, expected[k]) {
			mismatches = append(mismatches, fmt.Sprintf("%s=%v (want %v)", k, got, expected[k]))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprint(expected),
			Actual:   strings.Join(mismatches, ", "),
		}
	}
	return nil
}

func jsonFields(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// valuesEqual compares scalars by printed form and lists element-wise.
func valuesEqual(actual, expected any) bool {
	switch exp := expected.(type) {
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !valuesEqual(act[i], exp[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			if !valuesEqual(act[k], v) {
				return false
			}
		}
		return true
	}
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}
