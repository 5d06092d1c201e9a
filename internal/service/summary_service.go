package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/justice-digital/incentives-engine/internal/models"
	"github.com/justice-digital/incentives-engine/pkg/config"
	appErrors "github.com/justice-digital/incentives-engine/pkg/errors"
)

// Unreviewed-bucket policies.
const (
	UnreviewedPolicyBucket = "bucket"
	UnreviewedPolicyError  = "error"
)

type rosterSource interface {
	Roster(ctx context.Context, prisonID, locationID string) ([]models.PrisonerReviewContext, error)
}

type locationSource interface {
	LocationDescription(ctx context.Context, locationID string) (string, error)
}

type currentHistoryReader interface {
	HistoryByBookings(ctx context.Context, bookingIDs []int64) ([]models.ReviewRecord, error)
}

type dueDateReader interface {
	DueDates(ctx context.Context, contexts []models.PrisonerReviewContext) (map[int64]time.Time, error)
}

type behaviourCounter interface {
	Counts(ctx context.Context, histories map[int64][]models.ReviewRecord, now time.Time) (map[int64]models.CaseNoteCounts, map[int64]int, error)
}

// SummaryService aggregates a residential location's roster into per-level
// buckets with overdue and behaviour context. Every prisoner on the roster
// lands in exactly one bucket, so the per-level counts always sum to the
// roster size.
type SummaryService struct {
	prisoners rosterSource
	locations locationSource
	catalog   levelCatalog
	reviews   currentHistoryReader
	schedule  dueDateReader
	behaviour behaviourCounter

	unreviewedPolicy string
	graceDays        int

	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewSummaryService constructs the service.
func NewSummaryService(
	prisoners rosterSource,
	locations locationSource,
	catalog levelCatalog,
	reviews currentHistoryReader,
	schedule dueDateReader,
	behaviour behaviourCounter,
	aggregation config.AggregationConfig,
	policy config.PolicyConfig,
	logger *zap.Logger,
	metrics *Metrics,
) *SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{
		prisoners:        prisoners,
		locations:        locations,
		catalog:          catalog,
		reviews:          reviews,
		schedule:         schedule,
		behaviour:        behaviour,
		unreviewedPolicy: aggregation.UnreviewedBucket,
		graceDays:        policy.FirstReviewHorizonDays,
		logger:           logger,
		metrics:          metrics,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// SummarizeLocation builds the aggregated picture of one location.
func (s *SummaryService) SummarizeLocation(ctx context.Context, prisonID, locationID string) (*models.LocationSummary, error) {
	started := s.now()
	defer func() {
		s.metrics.ObserveSummaryDuration(s.now().Sub(started).Seconds())
	}()

	roster, err := s.prisoners.Roster(ctx, prisonID, locationID)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no prisoners found at %s location %s", prisonID, locationID))
	}

	levels, err := s.catalog.ActiveLevels(ctx, prisonID)
	if err != nil {
		return nil, err
	}

	description, err := s.locations.LocationDescription(ctx, locationID)
	if err != nil {
		s.logger.Warn("location description unavailable",
			zap.String("location_id", locationID),
			zap.Error(err),
		)
		description = locationID
	}

	ids := make([]int64, 0, len(roster))
	for _, p := range roster {
		ids = append(ids, p.BookingID)
	}

	records, err := s.reviews.HistoryByBookings(ctx, ids)
	if err != nil {
		return nil, err
	}
	histories := groupByBooking(records)

	dues, err := s.schedule.DueDates(ctx, roster)
	if err != nil {
		return nil, err
	}

	// Behaviour counts are informational context only; a provider outage
	// degrades them to zero rather than failing the whole summary.
	caseNotes, adjudications, err := s.behaviour.Counts(ctx, histories, s.now())
	if err != nil {
		s.logger.Warn("behaviour counts unavailable", zap.Error(err))
		caseNotes = map[int64]models.CaseNoteCounts{}
		adjudications = map[int64]int{}
	}

	knownLevels := make(map[string]bool, len(levels))
	for _, level := range levels {
		knownLevels[level.Code] = true
	}

	today := dateOf(s.now())
	buckets := make(map[string][]models.PrisonerSummary)
	summary := &models.LocationSummary{
		PrisonID:            prisonID,
		LocationID:          locationID,
		LocationDescription: description,
	}

	for _, prisoner := range roster {
		history := histories[prisoner.BookingID]
		row := s.prisonerRow(prisoner, history, dues, caseNotes, adjudications, today)
		bucket := s.bucketFor(history, knownLevels, &row)
		buckets[bucket] = append(buckets[bucket], row)

		summary.TotalPositiveBehaviours += row.PositiveBehaviours
		summary.TotalNegativeBehaviours += row.NegativeBehaviours
	}

	summary.Levels = orderBuckets(levels, buckets)
	return summary, nil
}

func (s *SummaryService) prisonerRow(
	prisoner models.PrisonerReviewContext,
	history []models.ReviewRecord,
	dues map[int64]time.Time,
	caseNotes map[int64]models.CaseNoteCounts,
	adjudications map[int64]int,
	today time.Time,
) models.PrisonerSummary {
	row := models.PrisonerSummary{
		BookingID:           prisoner.BookingID,
		PrisonerNumber:      prisoner.PrisonerNumber,
		FirstName:           prisoner.FirstName,
		LastName:            prisoner.LastName,
		ProvenAdjudications: adjudications[prisoner.BookingID],
	}

	if counts, ok := caseNotes[prisoner.BookingID]; ok {
		row.PositiveBehaviours = counts.PositiveBehaviours
		row.IncentiveEncouragements = counts.IncentiveEncouragements
		row.NegativeBehaviours = counts.NegativeBehaviours
		row.IncentiveWarnings = counts.IncentiveWarnings
	}

	if len(history) > 0 {
		row.DaysOnLevel = DaysOnCurrentLevel(history, today)
		row.DaysSinceLastReview = DaysSinceReview(history, today)
	}

	if due, ok := dues[prisoner.BookingID]; ok {
		dueDate := dateOf(due)
		row.NextReviewDate = &dueDate
		row.Overdue = dueDate.Before(today) && s.countsAsOverdue(prisoner, history, today)
	}
	return row
}

// countsAsOverdue filters out prisoners still inside their initial grace
// window who have never had a real review.
func (s *SummaryService) countsAsOverdue(prisoner models.PrisonerReviewContext, history []models.ReviewRecord, today time.Time) bool {
	for _, rec := range history {
		if rec.IsReal() {
			return true
		}
	}
	graceEnd := dateOf(prisoner.ReceptionDate).AddDate(0, 0, s.graceDays)
	return today.After(graceEnd)
}

func (s *SummaryService) bucketFor(history []models.ReviewRecord, knownLevels map[string]bool, row *models.PrisonerSummary) string {
	if len(history) == 0 {
		if s.unreviewedPolicy == UnreviewedPolicyError {
			row.Degraded = true
		}
		return models.UnreviewedLevelCode
	}
	level := history[0].LevelCode
	if !knownLevels[level] {
		return models.InvalidLevelCode
	}
	return level
}

// orderBuckets lays out level summaries in catalog order, with synthetic
// buckets appended after the real levels. Empty catalog levels are kept so
// the shape of a location is stable over time.
func orderBuckets(levels []models.IncentiveLevel, buckets map[string][]models.PrisonerSummary) []models.LevelSummary {
	ordered := append([]models.IncentiveLevel(nil), levels...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	result := make([]models.LevelSummary, 0, len(ordered)+2)
	for _, level := range ordered {
		result = append(result, levelSummary(level.Code, level.Description, buckets[level.Code]))
	}
	if prisoners := buckets[models.UnreviewedLevelCode]; len(prisoners) > 0 {
		result = append(result, levelSummary(models.UnreviewedLevelCode, "Unreviewed", prisoners))
	}
	if prisoners := buckets[models.InvalidLevelCode]; len(prisoners) > 0 {
		result = append(result, levelSummary(models.InvalidLevelCode, "Invalid level", prisoners))
	}
	return result
}

func levelSummary(code, name string, prisoners []models.PrisonerSummary) models.LevelSummary {
	summary := models.LevelSummary{
		LevelCode:   code,
		LevelName:   name,
		ReviewCount: len(prisoners),
		Prisoners:   prisoners,
	}
	for _, p := range prisoners {
		if p.Overdue {
			summary.OverdueCount++
		}
	}
	return summary
}
