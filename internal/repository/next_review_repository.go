package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/justice-digital/incentives-engine/internal/models"
)

// NextReviewDateRepository persists the derived next-review-date cache:
// one row per booking, always overwritten, never appended.
type NextReviewDateRepository struct {
	db *sqlx.DB
}

// NewNextReviewDateRepository constructs the repository.
func NewNextReviewDateRepository(db *sqlx.DB) *NextReviewDateRepository {
	return &NextReviewDateRepository{db: db}
}

// Upsert overwrites the due date for a booking, creating the row when
// absent.
func (r *NextReviewDateRepository) Upsert(ctx context.Context, bookingID int64, dueDate time.Time) (*models.NextReviewDate, error) {
	const query = `
INSERT INTO next_review_date (booking_id, next_review_date, when_created, when_updated)
VALUES ($1, $2, $3, $3)
ON CONFLICT (booking_id) DO UPDATE SET next_review_date = EXCLUDED.next_review_date, when_updated = EXCLUDED.when_updated
RETURNING booking_id, next_review_date, when_created, when_updated`

	now := time.Now().UTC()
	var row models.NextReviewDate
	if err := r.db.GetContext(ctx, &row, query, bookingID, dueDate, now); err != nil {
		return nil, fmt.Errorf("upsert next review date for booking %d: %w", bookingID, err)
	}
	return &row, nil
}

// Find returns the due-date row for a booking or nil when none exists.
func (r *NextReviewDateRepository) Find(ctx context.Context, bookingID int64) (*models.NextReviewDate, error) {
	const query = `SELECT booking_id, next_review_date, when_created, when_updated FROM next_review_date WHERE booking_id = $1`

	var row models.NextReviewDate
	if err := r.db.GetContext(ctx, &row, query, bookingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find next review date for booking %d: %w", bookingID, err)
	}
	return &row, nil
}

// FindMany returns due dates keyed by booking id for the given bookings.
func (r *NextReviewDateRepository) FindMany(ctx context.Context, bookingIDs []int64) (map[int64]time.Time, error) {
	if len(bookingIDs) == 0 {
		return map[int64]time.Time{}, nil
	}
	const query = `SELECT booking_id, next_review_date, when_created, when_updated FROM next_review_date WHERE booking_id = ANY($1)`

	var rows []models.NextReviewDate
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(bookingIDs)); err != nil {
		return nil, fmt.Errorf("find next review dates: %w", err)
	}

	result := make(map[int64]time.Time, len(rows))
	for _, row := range rows {
		result[row.BookingID] = row.DueDate
	}
	return result, nil
}
