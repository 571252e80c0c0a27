// Package harness runs conformance scenarios against the lifecycle engine.
//
// A scenario is a YAML file listing operations (who calls what, with which
// arguments), the outcome each one must have, and assertions on the final
// state. Every scenario runs on a fresh in-memory store with stubbed
// collaborators, a fresh logical clock and sequential request tokens
// ("req-0001", "req-0002", ...), so two runs of the same scenario produce
// byte-identical audit trails.
//
// Collaborators can be switched to fail for a single step:
//
//	- op: execute_plan
//	  caller: oracle
//	  plan_id: 0
//	  proof: certificate
//	  fail:
//	    verify: refuse
//	  expect:
//	    error: INVALID_PLAN
//
// Switches are "refuse" (the collaborator answers no), "error" (it fails)
// and, for encrypt only, "oversize". They reset after the step.
//
// # Golden files
//
// The audit trail of a scenario can be compared against a golden snapshot in
// canonical JSON. Regenerate snapshots with:
//
//	go test ./internal/harness -update
//
// or "bequest test --update" for scenario directories.
package harness
