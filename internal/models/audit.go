package models

import (
	"encoding/json"
	"time"
)

// AuditOperation constants name the state-changing operations the engine
// records.
const (
	AuditReviewSubmitted    = "REVIEW_SUBMITTED"
	AuditReviewUpdated      = "REVIEW_UPDATED"
	AuditReviewDeleted      = "REVIEW_DELETED"
	AuditKpiSnapshotCreated = "KPI_SNAPSHOT_CREATED"
)

// AuditEvent is one audit trail record. Delivery is fire-and-forget:
// a failed write never rolls back the state change it describes.
type AuditEvent struct {
	ID         string          `db:"id" json:"id"`
	Actor      string          `db:"actor" json:"actor"`
	Operation  string          `db:"operation" json:"operation"`
	Subject    string          `db:"subject" json:"subject"`
	Payload    json.RawMessage `db:"payload" json:"payload,omitempty"`
	OccurredAt time.Time       `db:"occurred_at" json:"occurredAt"`
}
