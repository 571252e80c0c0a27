// Package lifecycle implements the plan lifecycle engine: the state machine
// behind creating, updating, executing and claiming plans, plus the set-once
// oracle and the execution fee.
//
// STATES:
//
//	Active --ExecutePlan--> Executed
//
// Disputed is a reserved status; no operation here produces it.
//
// ATOMICITY:
//
// Every mutating operation runs in Engine.apply: one mutex, one SQLite
// transaction. Validation (internal/plan), authorization, collaborator calls
// and writes happen in that order inside the transaction. Any rejection or
// failure rolls back the whole operation, including the plan counter, and the
// logical clock does not advance. On success exactly one audit event is
// appended.
//
// COLLABORATORS:
//
// Registry, Encryptor, Vault, Oracle and Dispatcher are injected interfaces.
// A refusal and an error are the same to the engine: the operation fails with
// the code of the step that made the call, and nothing is retried.
//
// LOGICAL TIME:
//
// Plan timestamps and audit seqs come from Clock, which resumes from the audit
// log on startup. Wall time is used only to measure durations for metrics.
package lifecycle
