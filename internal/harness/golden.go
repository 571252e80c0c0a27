package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/bequest/internal/ir"
)

// Snapshot renders an audit trail as canonical JSON for golden comparison.
// Event ids are left out: they are content hashes of the fields that are
// kept, so the snapshot stays readable without losing information.
func Snapshot(name string, events []ir.AuditEvent) ([]byte, error) {
	trace := make(ir.Array, len(events))
	for i, ev := range events {
		trace[i] = ir.Object{
			"seq":           ir.Int(ev.Seq),
			"kind":          ir.String(ev.Kind),
			"plan_id":       ir.Int(ev.PlanID),
			"payload":       ev.Payload,
			"caller":        ir.String(ev.Caller),
			"request_token": ir.String(ev.RequestToken),
		}
	}
	return ir.MarshalCanonical(ir.Object{
		"scenario_name": ir.String(name),
		"trace":         trace,
	})
}

// RunWithGolden runs a scenario and compares its audit trail against
// testdata/golden/<name>.golden.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result.Events)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
