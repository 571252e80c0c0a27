package ir

// Audit event kinds. One event is appended per committed mutating operation.
const (
	EventPlanCreated  = "plan-created"
	EventPlanUpdated  = "plan-updated"
	EventPlanExecuted = "plan-executed"
	EventShareClaimed = "share-claimed"
	EventOracleSet    = "oracle-set"
	EventFeeSet       = "fee-set"
)

// NoPlan is the PlanID of events that concern configuration rather than a plan.
const NoPlan int64 = -1

// AuditEvent is an append-only record of a committed operation.
type AuditEvent struct {
	ID            string `json:"id"`            // Content-addressed, see EventID
	Seq           int64  `json:"seq"`           // Logical time of the operation
	Kind          string `json:"kind"`          // One of the Event* constants
	PlanID        int64  `json:"plan_id"`       // NoPlan for config events
	Payload       Object `json:"payload"`       // Kind-specific fields
	Caller        string `json:"caller"`        // Identity that invoked the operation
	RequestToken  string `json:"request_token"` // Correlates logs; not part of ID
	EngineVersion string `json:"engine_version"`
}
