package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/justice-digital/incentives-engine/internal/models"
)

// AuditRepository stores the audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert stores one audit event.
func (r *AuditRepository) Insert(ctx context.Context, event models.AuditEvent) error {
	const query = `
INSERT INTO audit_event (id, actor, operation, subject, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Actor,
		event.Operation,
		event.Subject,
		event.Payload,
		event.OccurredAt,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
