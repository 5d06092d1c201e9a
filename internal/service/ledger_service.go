package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/justice-digital/incentives-engine/internal/models"
	"github.com/justice-digital/incentives-engine/internal/repository"
	appErrors "github.com/justice-digital/incentives-engine/pkg/errors"
)

type reviewStore interface {
	Create(ctx context.Context, params repository.CreateReviewParams) (*models.ReviewRecord, error)
	FindByID(ctx context.Context, id int64) (*models.ReviewRecord, error)
	CurrentRecords(ctx context.Context, bookingID int64) ([]models.ReviewRecord, error)
	HistoryByBooking(ctx context.Context, bookingID int64) ([]models.ReviewRecord, error)
	HistoryByPrisoner(ctx context.Context, prisonerNumber string) ([]models.ReviewRecord, error)
	CurrentForBookings(ctx context.Context, bookingIDs []int64) ([]models.ReviewRecord, error)
	AnyOnLevel(ctx context.Context, bookingIDs []int64, levelCode string) (bool, error)
	Update(ctx context.Context, rec models.ReviewRecord, params repository.UpdateReviewParams) (*models.ReviewRecord, error)
	Delete(ctx context.Context, rec models.ReviewRecord) error
	MakeSoleCurrent(ctx context.Context, bookingID, id int64) error
}

type levelCatalog interface {
	ActiveLevels(ctx context.Context, prisonID string) ([]models.IncentiveLevel, error)
}

type dueDateRecomputer interface {
	Recompute(ctx context.Context, bookingID int64) (*models.NextReviewDate, error)
}

type auditPublisher interface {
	Publish(actor, operation, subject string, payload interface{})
}

// LedgerService owns the review ledger: submissions, reads and
// administrative corrections. Every write keeps the one-current-record
// invariant and triggers a due-date recomputation.
type LedgerService struct {
	reviews  reviewStore
	catalog  levelCatalog
	schedule dueDateRecomputer
	audit    auditPublisher
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *Metrics
	now      func() time.Time
}

// NewLedgerService constructs the service.
func NewLedgerService(
	reviews reviewStore,
	catalog levelCatalog,
	schedule dueDateRecomputer,
	audit auditPublisher,
	logger *zap.Logger,
	metrics *Metrics,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		reviews:  reviews,
		catalog:  catalog,
		schedule: schedule,
		audit:    audit,
		validate: validator.New(),
		logger:   logger,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SubmitReviewRequest carries one review submission.
type SubmitReviewRequest struct {
	BookingID      int64             `json:"bookingId" validate:"required"`
	PrisonerNumber string            `json:"prisonerNumber" validate:"required"`
	PrisonID       string            `json:"prisonId" validate:"required"`
	LevelCode      string            `json:"levelCode" validate:"required,min=2,max=6"`
	Comment        string            `json:"comment" validate:"required"`
	ReviewedBy     string            `json:"reviewedBy" validate:"required"`
	ReviewTime     *time.Time        `json:"reviewTime,omitempty"`
	ReviewType     models.ReviewType `json:"reviewType,omitempty"`
}

// SubmitReview validates and appends a review record, making it the sole
// current record for the booking.
func (s *LedgerService) SubmitReview(ctx context.Context, req SubmitReviewRequest) (*models.ReviewRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review submission")
	}

	reviewType := req.ReviewType
	if reviewType == "" {
		reviewType = models.ReviewTypeReview
	}
	if !reviewType.Known() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown review type %q", req.ReviewType))
	}

	if err := s.checkLevelActive(ctx, req.PrisonID, req.LevelCode); err != nil {
		return nil, err
	}

	reviewTime := s.now()
	if req.ReviewTime != nil {
		reviewTime = req.ReviewTime.UTC()
	}

	rec, err := s.reviews.Create(ctx, repository.CreateReviewParams{
		BookingID:      req.BookingID,
		PrisonerNumber: req.PrisonerNumber,
		PrisonID:       req.PrisonID,
		LevelCode:      req.LevelCode,
		ReviewTime:     reviewTime,
		ReviewedBy:     &req.ReviewedBy,
		CommentText:    &req.Comment,
		ReviewType:     reviewType,
	})
	if err != nil {
		return nil, err
	}

	s.recomputeAfterWrite(ctx, rec.BookingID)
	s.audit.Publish(req.ReviewedBy, models.AuditReviewSubmitted, fmt.Sprintf("review/%d", rec.ID), rec)
	s.metrics.ReviewSubmitted(string(reviewType))

	s.logger.Info("review submitted",
		zap.Int64("booking_id", rec.BookingID),
		zap.String("prisoner_number", rec.PrisonerNumber),
		zap.String("level_code", rec.LevelCode),
		zap.String("review_type", string(reviewType)),
	)
	return rec, nil
}

// GetCurrent returns the single current record for a booking. Observing
// more than one flagged record is repaired in place: the newest keeps the
// flag and is returned.
func (s *LedgerService) GetCurrent(ctx context.Context, bookingID int64) (*models.ReviewRecord, error) {
	recs, err := s.reviews.CurrentRecords(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	switch len(recs) {
	case 0:
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no current review for booking %d", bookingID))
	case 1:
		return &recs[0], nil
	}

	s.logger.Error("multiple current reviews observed, repairing",
		zap.Int64("booking_id", bookingID),
		zap.Int("count", len(recs)),
	)
	if err := s.reviews.MakeSoleCurrent(ctx, bookingID, recs[0].ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConsistency.Code, appErrors.ErrConsistency.Status, "repairing current review flag failed")
	}
	return &recs[0], nil
}

// GetHistoryByBooking returns the full ledger for a booking, newest first.
func (s *LedgerService) GetHistoryByBooking(ctx context.Context, bookingID int64) ([]models.ReviewRecord, error) {
	recs, err := s.reviews.HistoryByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no reviews for booking %d", bookingID))
	}
	return recs, nil
}

// GetHistoryByPrisoner returns the ledger across all bookings of a
// prisoner number, newest first.
func (s *LedgerService) GetHistoryByPrisoner(ctx context.Context, prisonerNumber string) ([]models.ReviewRecord, error) {
	recs, err := s.reviews.HistoryByPrisoner(ctx, prisonerNumber)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no reviews for prisoner %s", prisonerNumber))
	}
	return recs, nil
}

// GetCurrentForBookings returns the current record for each of the given
// bookings in one round trip. Bookings without a ledger record are simply
// absent from the result.
func (s *LedgerService) GetCurrentForBookings(ctx context.Context, bookingIDs []int64) ([]models.ReviewRecord, error) {
	if len(bookingIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one booking id is required")
	}
	return s.reviews.CurrentForBookings(ctx, bookingIDs)
}

// AnyPrisonerOnLevel reports whether any of the bookings is currently on
// the level.
func (s *LedgerService) AnyPrisonerOnLevel(ctx context.Context, bookingIDs []int64, levelCode string) (bool, error) {
	return s.reviews.AnyOnLevel(ctx, bookingIDs, levelCode)
}

// UpdateReviewRequest is an administrative correction. Nil fields are left
// unchanged; at least one must be set.
type UpdateReviewRequest struct {
	ReviewTime *time.Time `json:"reviewTime,omitempty"`
	Comment    *string    `json:"comment,omitempty"`
	Current    *bool      `json:"current,omitempty"`
	UpdatedBy  string     `json:"updatedBy"`
}

// UpdateReview corrects an existing ledger record.
func (s *LedgerService) UpdateReview(ctx context.Context, bookingID, reviewID int64, req UpdateReviewRequest) (*models.ReviewRecord, error) {
	if req.ReviewTime == nil && req.Comment == nil && req.Current == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}
	if req.Comment != nil && *req.Comment == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment must not be empty")
	}

	rec, err := s.findOwnedRecord(ctx, bookingID, reviewID)
	if err != nil {
		return nil, err
	}

	updated, err := s.reviews.Update(ctx, *rec, repository.UpdateReviewParams{
		ReviewTime:  req.ReviewTime,
		CommentText: req.Comment,
		Current:     req.Current,
	})
	if err != nil {
		return nil, err
	}

	s.recomputeAfterWrite(ctx, bookingID)
	s.audit.Publish(req.UpdatedBy, models.AuditReviewUpdated, fmt.Sprintf("review/%d", reviewID), updated)
	s.metrics.ReviewCorrected("update")
	return updated, nil
}

// DeleteReview removes a ledger record, promoting the latest remaining
// record when the deleted one was current.
func (s *LedgerService) DeleteReview(ctx context.Context, bookingID, reviewID int64, deletedBy string) error {
	rec, err := s.findOwnedRecord(ctx, bookingID, reviewID)
	if err != nil {
		return err
	}

	if err := s.reviews.Delete(ctx, *rec); err != nil {
		return err
	}

	s.recomputeAfterWrite(ctx, bookingID)
	s.audit.Publish(deletedBy, models.AuditReviewDeleted, fmt.Sprintf("review/%d", reviewID), rec)
	s.metrics.ReviewCorrected("delete")
	return nil
}

func (s *LedgerService) findOwnedRecord(ctx context.Context, bookingID, reviewID int64) (*models.ReviewRecord, error) {
	rec, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.BookingID != bookingID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("review %d not found for booking %d", reviewID, bookingID))
	}
	return rec, nil
}

func (s *LedgerService) checkLevelActive(ctx context.Context, prisonID, levelCode string) error {
	levels, err := s.catalog.ActiveLevels(ctx, prisonID)
	if err != nil {
		return err
	}
	for _, level := range levels {
		if level.Code == levelCode {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("level %s is not active at prison %s", levelCode, prisonID))
}

// recomputeAfterWrite refreshes the due date without failing the write
// that triggered it. The stored date survives provider outages; a
// recompute failure here only delays the refresh.
func (s *LedgerService) recomputeAfterWrite(ctx context.Context, bookingID int64) {
	if _, err := s.schedule.Recompute(ctx, bookingID); err != nil {
		s.logger.Warn("next review date recompute failed after ledger write",
			zap.Int64("booking_id", bookingID),
			zap.Error(err),
		)
	}
}
