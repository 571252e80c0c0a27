// Package store provides SQLite-backed durable state for the plan lifecycle.
//
// Tables and their owners:
//   - plans, plan_executions: PlanStore
//   - beneficiary_claims: ClaimLedger
//   - config_state (single row): ConfigState
//   - audit_events (append-only): AuditLog
//
// # Transactions
//
// Every lifecycle operation runs inside Store.WithTx. The function passed to
// WithTx reads, validates, calls out to collaborators and writes through the
// *Tx; any returned error rolls back every write made so far. Nothing from a
// failed operation is ever observable.
//
// # Ordering
//
// Audit events are ordered by seq (the engine's logical clock), never by wall
// time. Queries returning lists always ORDER BY a key so results are identical
// across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// SQLite INTEGER is signed. Unsigned values (vault ids, fees) are stored by
// bit pattern and converted back on read.
package store
