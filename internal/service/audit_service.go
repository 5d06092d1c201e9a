package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justice-digital/incentives-engine/internal/models"
	"github.com/justice-digital/incentives-engine/pkg/config"
	"github.com/justice-digital/incentives-engine/pkg/jobs"
)

type auditStore interface {
	Insert(ctx context.Context, event models.AuditEvent) error
}

// AuditService publishes audit events through an in-memory queue. Delivery
// is fire-and-forget: publishing never blocks a state change and a failed
// write is logged, not retried into the caller's path.
type AuditService struct {
	store  auditStore
	queue  *jobs.Queue
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditService constructs the service and its backing queue.
func NewAuditService(store auditStore, cfg config.AuditConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AuditService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	svc.queue = jobs.NewQueue("audit", svc.persist, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return svc
}

// Start begins queue consumption.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Publish enqueues one audit event describing a completed state change.
func (s *AuditService) Publish(actor, operation, subject string, payload interface{}) {
	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			s.logger.Warn("audit payload not serialisable",
				zap.String("operation", operation),
				zap.String("subject", subject),
				zap.Error(err),
			)
		} else {
			raw = encoded
		}
	}

	event := models.AuditEvent{
		ID:         uuid.NewString(),
		Actor:      actor,
		Operation:  operation,
		Subject:    subject,
		Payload:    raw,
		OccurredAt: s.now(),
	}
	s.queue.Enqueue(jobs.Job{ID: event.ID, Type: operation, Payload: event})
}

func (s *AuditService) persist(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.AuditEvent)
	if !ok {
		s.logger.Warn("unexpected audit job payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.store.Insert(ctx, event)
}
