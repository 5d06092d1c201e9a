package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/justice-digital/incentives-engine/internal/models"
)

type caseNoteSource interface {
	CaseNoteCounts(ctx context.Context, windows map[int64]time.Time) ([]models.CaseNoteCounts, error)
}

type adjudicationSource interface {
	ProvenAdjudications(ctx context.Context, bookingIDs []int64) ([]models.ProvenAdjudication, error)
}

// BehaviourService aggregates behaviour case notes and proven
// adjudications for a set of bookings. Each booking's window starts at its
// last real review, bounded by the configured default lookback.
type BehaviourService struct {
	caseNotes     caseNoteSource
	adjudications adjudicationSource
	windowMonths  int
	logger        *zap.Logger
}

// NewBehaviourService constructs the service.
func NewBehaviourService(caseNotes caseNoteSource, adjudications adjudicationSource, windowMonths int, logger *zap.Logger) *BehaviourService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BehaviourService{
		caseNotes:     caseNotes,
		adjudications: adjudications,
		windowMonths:  windowMonths,
		logger:        logger,
	}
}

// Counts returns case-note counts and proven adjudication counts keyed by
// booking id. Histories are newest first, as the ledger returns them.
func (s *BehaviourService) Counts(ctx context.Context, histories map[int64][]models.ReviewRecord, now time.Time) (map[int64]models.CaseNoteCounts, map[int64]int, error) {
	if len(histories) == 0 {
		return map[int64]models.CaseNoteCounts{}, map[int64]int{}, nil
	}

	defaultStart := now.AddDate(0, -s.windowMonths, 0)
	windows := make(map[int64]time.Time, len(histories))
	ids := make([]int64, 0, len(histories))
	for bookingID, history := range histories {
		windows[bookingID] = windowStart(history, defaultStart)
		ids = append(ids, bookingID)
	}

	counts, err := s.caseNotes.CaseNoteCounts(ctx, windows)
	if err != nil {
		return nil, nil, err
	}
	byBooking := make(map[int64]models.CaseNoteCounts, len(counts))
	for _, c := range counts {
		byBooking[c.BookingID] = c
	}

	adjudications, err := s.adjudications.ProvenAdjudications(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	adjByBooking := make(map[int64]int, len(adjudications))
	for _, a := range adjudications {
		adjByBooking[a.BookingID] = a.Count
	}

	return byBooking, adjByBooking, nil
}

// windowStart returns the later of the last real review and the default
// lookback start, so behaviour entries already considered by a review are
// not re-counted forever.
func windowStart(history []models.ReviewRecord, defaultStart time.Time) time.Time {
	for _, rec := range history {
		if rec.IsReal() {
			if rec.ReviewTime.After(defaultStart) {
				return rec.ReviewTime
			}
			return defaultStart
		}
	}
	return defaultStart
}
