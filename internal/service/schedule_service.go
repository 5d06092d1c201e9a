package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/justice-digital/incentives-engine/internal/models"
	appErrors "github.com/justice-digital/incentives-engine/pkg/errors"
)

// Recompute outcomes recorded against metrics.
const (
	recomputeOutcomeOK            = "ok"
	recomputeOutcomeStaleFallback = "stale_fallback"
	recomputeOutcomeError         = "error"
)

type scheduleHistoryReader interface {
	HistoryByBooking(ctx context.Context, bookingID int64) ([]models.ReviewRecord, error)
	HistoryByBookings(ctx context.Context, bookingIDs []int64) ([]models.ReviewRecord, error)
}

type nextReviewStore interface {
	Upsert(ctx context.Context, bookingID int64, dueDate time.Time) (*models.NextReviewDate, error)
	Find(ctx context.Context, bookingID int64) (*models.NextReviewDate, error)
	FindMany(ctx context.Context, bookingIDs []int64) (map[int64]time.Time, error)
}

type prisonerContextSource interface {
	ContextByBooking(ctx context.Context, bookingID int64) (*models.PrisonerReviewContext, error)
}

// ScheduleService derives and stores next review due dates. The stored
// date is a cache of a pure policy evaluation; it can always be rebuilt
// from the ledger and the prisoner's external attributes.
type ScheduleService struct {
	reviews   scheduleHistoryReader
	dates     nextReviewStore
	prisoners prisonerContextSource
	policy    ReviewIntervalPolicy
	logger    *zap.Logger
	metrics   *Metrics
}

// NewScheduleService constructs the service.
func NewScheduleService(
	reviews scheduleHistoryReader,
	dates nextReviewStore,
	prisoners prisonerContextSource,
	policy ReviewIntervalPolicy,
	logger *zap.Logger,
	metrics *Metrics,
) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		reviews:   reviews,
		dates:     dates,
		prisoners: prisoners,
		policy:    policy,
		logger:    logger,
		metrics:   metrics,
	}
}

// Recompute re-evaluates the due date for one booking and overwrites the
// stored value. When the prisoner context cannot be resolved and a
// previously stored date exists, that date is kept and returned rather
// than discarded; with nothing stored the failure is surfaced.
func (s *ScheduleService) Recompute(ctx context.Context, bookingID int64) (*models.NextReviewDate, error) {
	prisonerCtx, err := s.prisoners.ContextByBooking(ctx, bookingID)
	if err != nil {
		previous, findErr := s.dates.Find(ctx, bookingID)
		if findErr == nil && previous != nil {
			s.logger.Warn("prisoner context unavailable, keeping stored due date",
				zap.Int64("booking_id", bookingID),
				zap.Time("next_review_date", previous.DueDate),
				zap.Error(err),
			)
			s.metrics.RecomputeOutcome(recomputeOutcomeStaleFallback)
			return previous, nil
		}
		s.metrics.RecomputeOutcome(recomputeOutcomeError)
		return nil, appErrors.Wrap(err,
			appErrors.ErrMissingPrisonerContext.Code,
			appErrors.ErrMissingPrisonerContext.Status,
			fmt.Sprintf("prisoner context for booking %d could not be resolved", bookingID),
		)
	}

	history, err := s.reviews.HistoryByBooking(ctx, bookingID)
	if err != nil {
		s.metrics.RecomputeOutcome(recomputeOutcomeError)
		return nil, fmt.Errorf("load history for booking %d: %w", bookingID, err)
	}

	due := s.policy.Evaluate(PolicyInput{
		DateOfBirth:   prisonerCtx.DateOfBirth,
		ReceptionDate: prisonerCtx.ReceptionDate,
		HasOpenACCT:   prisonerCtx.HasOpenACCT,
		History:       history,
	})

	row, err := s.dates.Upsert(ctx, bookingID, due)
	if err != nil {
		s.metrics.RecomputeOutcome(recomputeOutcomeError)
		return nil, err
	}
	s.metrics.RecomputeOutcome(recomputeOutcomeOK)
	return row, nil
}

// GetOrCompute returns the stored due date, computing and storing it when
// absent.
func (s *ScheduleService) GetOrCompute(ctx context.Context, bookingID int64) (*models.NextReviewDate, error) {
	row, err := s.dates.Find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return row, nil
	}
	return s.Recompute(ctx, bookingID)
}

// RecomputeMany re-evaluates due dates for a set of prisoners whose
// contexts are already in hand, loading all their histories in one query.
func (s *ScheduleService) RecomputeMany(ctx context.Context, contexts []models.PrisonerReviewContext) (map[int64]time.Time, error) {
	if len(contexts) == 0 {
		return map[int64]time.Time{}, nil
	}

	ids := make([]int64, 0, len(contexts))
	for _, c := range contexts {
		ids = append(ids, c.BookingID)
	}

	records, err := s.reviews.HistoryByBookings(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load histories: %w", err)
	}
	histories := groupByBooking(records)

	result := make(map[int64]time.Time, len(contexts))
	for _, c := range contexts {
		due := s.policy.Evaluate(PolicyInput{
			DateOfBirth:   c.DateOfBirth,
			ReceptionDate: c.ReceptionDate,
			HasOpenACCT:   c.HasOpenACCT,
			History:       histories[c.BookingID],
		})
		row, err := s.dates.Upsert(ctx, c.BookingID, due)
		if err != nil {
			return nil, err
		}
		result[c.BookingID] = row.DueDate
	}
	return result, nil
}

// DueDates returns stored due dates for the given prisoners, computing any
// that are missing.
func (s *ScheduleService) DueDates(ctx context.Context, contexts []models.PrisonerReviewContext) (map[int64]time.Time, error) {
	ids := make([]int64, 0, len(contexts))
	for _, c := range contexts {
		ids = append(ids, c.BookingID)
	}

	stored, err := s.dates.FindMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	var missing []models.PrisonerReviewContext
	for _, c := range contexts {
		if _, ok := stored[c.BookingID]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return stored, nil
	}

	computed, err := s.RecomputeMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	for bookingID, due := range computed {
		stored[bookingID] = due
	}
	return stored, nil
}

func groupByBooking(records []models.ReviewRecord) map[int64][]models.ReviewRecord {
	grouped := make(map[int64][]models.ReviewRecord)
	for _, rec := range records {
		grouped[rec.BookingID] = append(grouped[rec.BookingID], rec)
	}
	return grouped
}
