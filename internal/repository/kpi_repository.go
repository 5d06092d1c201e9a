package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/justice-digital/incentives-engine/internal/models"
)

// ReviewsConductedPrisonersReviewed pairs the two previous-period counts
// computed in a single query.
type ReviewsConductedPrisonersReviewed struct {
	ReviewsConducted  int `db:"reviews_conducted"`
	PrisonersReviewed int `db:"prisoners_reviewed"`
}

// KpiRepository persists daily KPI snapshots and runs the estate-wide
// aggregate queries that feed them.
type KpiRepository struct {
	db *sqlx.DB
}

// NewKpiRepository constructs the repository.
func NewKpiRepository(db *sqlx.DB) *KpiRepository {
	return &KpiRepository{db: db}
}

// Exists reports whether a snapshot for the day is already stored.
func (r *KpiRepository) Exists(ctx context.Context, day time.Time) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM kpi_snapshot WHERE day = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, day); err != nil {
		return false, fmt.Errorf("check kpi snapshot for %s: %w", day.Format("2006-01-02"), err)
	}
	return exists, nil
}

// Insert stores one snapshot row. The primary key on day makes concurrent
// duplicate runs collide; ON CONFLICT DO NOTHING turns the loser into a
// benign no-op, reported through the returned flag.
func (r *KpiRepository) Insert(ctx context.Context, snapshot models.KpiSnapshot) (inserted bool, err error) {
	const query = `
INSERT INTO kpi_snapshot (day, overdue_reviews, previous_month_reviews_conducted, previous_month_prisoners_reviewed, when_created)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (day) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		snapshot.Day,
		snapshot.OverdueReviews,
		snapshot.PreviousMonthReviewsConducted,
		snapshot.PreviousMonthPrisonersReviewed,
		time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert kpi snapshot: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("kpi snapshot rows affected: %w", err)
	}
	return affected > 0, nil
}

// Find returns the snapshot for a day or nil when none exists.
func (r *KpiRepository) Find(ctx context.Context, day time.Time) (*models.KpiSnapshot, error) {
	const query = `SELECT day, overdue_reviews, previous_month_reviews_conducted, previous_month_prisoners_reviewed, when_created FROM kpi_snapshot WHERE day = $1`

	var snapshot models.KpiSnapshot
	if err := r.db.GetContext(ctx, &snapshot, query, day); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find kpi snapshot: %w", err)
	}
	return &snapshot, nil
}

// List returns snapshots within the inclusive day range, oldest first.
func (r *KpiRepository) List(ctx context.Context, from, to time.Time) ([]models.KpiSnapshot, error) {
	const query = `SELECT day, overdue_reviews, previous_month_reviews_conducted, previous_month_prisoners_reviewed, when_created FROM kpi_snapshot WHERE day >= $1 AND day <= $2 ORDER BY day ASC`

	var snapshots []models.KpiSnapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, from, to); err != nil {
		return nil, fmt.Errorf("list kpi snapshots: %w", err)
	}
	return snapshots, nil
}

// ReviewsConductedPrisonersReviewed counts real reviews, and distinct
// prisoners reviewed, in the calendar month preceding the given day.
func (r *KpiRepository) ReviewsConductedPrisonersReviewed(ctx context.Context, day time.Time) (ReviewsConductedPrisonersReviewed, error) {
	const query = `
SELECT count(*) AS reviews_conducted, count(DISTINCT prisoner_number) AS prisoners_reviewed
FROM incentive_review
WHERE review_time >= (DATE_TRUNC('month', $1::date) - '1 month'::INTERVAL)::DATE
  AND review_time < DATE_TRUNC('month', $1::date)::DATE
  AND review_type IN ('REVIEW', 'MIGRATED')`

	var counts ReviewsConductedPrisonersReviewed
	if err := r.db.GetContext(ctx, &counts, query, day); err != nil {
		return counts, fmt.Errorf("count reviews conducted: %w", err)
	}
	return counts, nil
}

// OverduePrisonerNumbers returns distinct prisoner numbers whose next
// review date has passed. These may include people no longer in custody;
// callers filter against the estate roster.
func (r *KpiRepository) OverduePrisonerNumbers(ctx context.Context, day time.Time) ([]string, error) {
	const query = `
SELECT DISTINCT prisoner_number
FROM incentive_review
JOIN next_review_date USING (booking_id)
WHERE next_review_date < $1`

	var numbers []string
	if err := r.db.SelectContext(ctx, &numbers, query, day); err != nil {
		return nil, fmt.Errorf("overdue prisoner numbers: %w", err)
	}
	return numbers, nil
}
