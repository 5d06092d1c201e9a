package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/justice-digital/incentives-engine/internal/models"
	"github.com/justice-digital/incentives-engine/internal/repository"
	appErrors "github.com/justice-digital/incentives-engine/pkg/errors"
)

// KPI run outcomes recorded against metrics.
const (
	kpiOutcomeCreated = "created"
	kpiOutcomeExists  = "exists"
	kpiOutcomeError   = "error"
)

type kpiStore interface {
	Insert(ctx context.Context, snapshot models.KpiSnapshot) (bool, error)
	Find(ctx context.Context, day time.Time) (*models.KpiSnapshot, error)
	List(ctx context.Context, from, to time.Time) ([]models.KpiSnapshot, error)
	ReviewsConductedPrisonersReviewed(ctx context.Context, day time.Time) (repository.ReviewsConductedPrisonersReviewed, error)
	OverduePrisonerNumbers(ctx context.Context, day time.Time) ([]string, error)
}

type estateSource interface {
	ActivePrisons(ctx context.Context) ([]string, error)
}

// KpiService computes and stores the idempotent daily KPI snapshots.
type KpiService struct {
	kpis    kpiStore
	estate  estateSource
	rosters rosterSource
	audit   auditPublisher
	logger  *zap.Logger
	metrics *Metrics
}

// NewKpiService constructs the service.
func NewKpiService(
	kpis kpiStore,
	estate estateSource,
	rosters rosterSource,
	audit auditPublisher,
	logger *zap.Logger,
	metrics *Metrics,
) *KpiService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KpiService{
		kpis:    kpis,
		estate:  estate,
		rosters: rosters,
		audit:   audit,
		logger:  logger,
		metrics: metrics,
	}
}

// RunDaily computes the snapshot for a day. An existing snapshot makes the
// run a logged no-op; a concurrent duplicate insert loses quietly to the
// primary key and returns the stored row. The created flag reports whether
// this run stored the snapshot.
func (s *KpiService) RunDaily(ctx context.Context, day time.Time) (*models.KpiSnapshot, bool, error) {
	day = dateOf(day)

	existing, err := s.kpis.Find(ctx, day)
	if err != nil {
		s.metrics.KpiRunOutcome(kpiOutcomeError)
		return nil, false, err
	}
	if existing != nil {
		s.logger.Info("kpi snapshot already exists, skipping", zap.Time("day", day))
		s.metrics.KpiRunOutcome(kpiOutcomeExists)
		return existing, false, nil
	}

	counts, err := s.kpis.ReviewsConductedPrisonersReviewed(ctx, day)
	if err != nil {
		s.metrics.KpiRunOutcome(kpiOutcomeError)
		return nil, false, err
	}

	overdue, err := s.countOverdue(ctx, day)
	if err != nil {
		s.metrics.KpiRunOutcome(kpiOutcomeError)
		return nil, false, err
	}

	snapshot := models.KpiSnapshot{
		Day:                            day,
		OverdueReviews:                 overdue,
		PreviousMonthReviewsConducted:  counts.ReviewsConducted,
		PreviousMonthPrisonersReviewed: counts.PrisonersReviewed,
	}

	inserted, err := s.kpis.Insert(ctx, snapshot)
	if err != nil {
		s.metrics.KpiRunOutcome(kpiOutcomeError)
		return nil, false, err
	}
	if !inserted {
		s.logger.Info("kpi snapshot inserted concurrently elsewhere", zap.Time("day", day))
		s.metrics.KpiRunOutcome(kpiOutcomeExists)
		stored, err := s.kpis.Find(ctx, day)
		if err != nil {
			return nil, false, err
		}
		return stored, false, nil
	}

	s.audit.Publish("system", models.AuditKpiSnapshotCreated, "kpi/"+day.Format("2006-01-02"), snapshot)
	s.metrics.KpiRunOutcome(kpiOutcomeCreated)
	s.logger.Info("kpi snapshot created",
		zap.Time("day", day),
		zap.Int("overdue_reviews", overdue),
		zap.Int("reviews_conducted", counts.ReviewsConducted),
		zap.Int("prisoners_reviewed", counts.PrisonersReviewed),
	)
	return &snapshot, true, nil
}

// Snapshot returns the stored snapshot for a day.
func (s *KpiService) Snapshot(ctx context.Context, day time.Time) (*models.KpiSnapshot, error) {
	snapshot, err := s.kpis.Find(ctx, dateOf(day))
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no kpi snapshot for %s", day.Format("2006-01-02")))
	}
	return snapshot, nil
}

// Snapshots returns snapshots within the inclusive day range.
func (s *KpiService) Snapshots(ctx context.Context, from, to time.Time) ([]models.KpiSnapshot, error) {
	return s.kpis.List(ctx, dateOf(from), dateOf(to))
}

// countOverdue intersects overdue prisoner numbers from the ledger with
// the estate roster, so prisoners who have been released no longer count.
func (s *KpiService) countOverdue(ctx context.Context, day time.Time) (int, error) {
	numbers, err := s.kpis.OverduePrisonerNumbers(ctx, day)
	if err != nil {
		return 0, err
	}
	if len(numbers) == 0 {
		return 0, nil
	}

	prisons, err := s.estate.ActivePrisons(ctx)
	if err != nil {
		return 0, err
	}

	inCustody := make(map[string]bool)
	for _, prisonID := range prisons {
		roster, err := s.rosters.Roster(ctx, prisonID, "")
		if err != nil {
			return 0, fmt.Errorf("roster for prison %s: %w", prisonID, err)
		}
		for _, prisoner := range roster {
			inCustody[prisoner.PrisonerNumber] = true
		}
	}

	overdue := 0
	for _, number := range numbers {
		if inCustody[number] {
			overdue++
		}
	}
	return overdue, nil
}
