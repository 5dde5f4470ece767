package model

import "time"

// AuditOutcome classifies how an operator action attempt ended.
type AuditOutcome string

// Audit outcomes.
const (
	OutcomeSuccess  AuditOutcome = "success"  // backend accepted the action
	OutcomeRejected AuditOutcome = "rejected" // stopped client-side, nothing sent
	OutcomeFailed   AuditOutcome = "failed"   // sent, backend or transport error
)

// ActionAudit is one recorded operator action attempt.
type ActionAudit struct {
	ID         int64        `json:"id" db:"id"`
	QueueID    int64        `json:"queue_id" db:"queue_id"`
	Action     ActionKind   `json:"action" db:"action"`
	OperatorID int64        `json:"operator_id" db:"operator_id"`
	Outcome    AuditOutcome `json:"outcome" db:"outcome"`
	Error      *string      `json:"error" db:"error"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}
