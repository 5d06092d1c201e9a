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

const reviewColumns = `id, booking_id, prisoner_number, prison_id, level_code, review_time, reviewed_by, comment_text, review_type, current, when_created`

// ReviewRepository persists the append-only review ledger.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs the repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// CreateReviewParams holds values required to insert a ledger record.
type CreateReviewParams struct {
	BookingID      int64
	PrisonerNumber string
	PrisonID       string
	LevelCode      string
	ReviewTime     time.Time
	ReviewedBy     *string
	CommentText    *string
	ReviewType     models.ReviewType
}

// Create inserts a new current record and, in the same transaction, flips
// every other record for the booking to non-current. The update is scoped
// by booking, prior current flag and the new id, so two concurrent
// submissions for one booking cannot both leave a row marked current.
func (r *ReviewRepository) Create(ctx context.Context, params CreateReviewParams) (rec *models.ReviewRecord, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin review transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `
INSERT INTO incentive_review (booking_id, prisoner_number, prison_id, level_code, review_time, reviewed_by, comment_text, review_type, current, when_created)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, $9)
RETURNING ` + reviewColumns

	now := time.Now().UTC()
	var inserted models.ReviewRecord
	if err = tx.GetContext(ctx, &inserted, insertQuery,
		params.BookingID,
		params.PrisonerNumber,
		params.PrisonID,
		params.LevelCode,
		params.ReviewTime,
		params.ReviewedBy,
		params.CommentText,
		params.ReviewType,
		now,
	); err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}

	const clearQuery = `UPDATE incentive_review SET current = false WHERE booking_id = $1 AND current = true AND id != $2`
	if _, err = tx.ExecContext(ctx, clearQuery, params.BookingID, inserted.ID); err != nil {
		return nil, fmt.Errorf("clear previous current review: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit review: %w", err)
	}
	return &inserted, nil
}

// FindByID fetches a single ledger record.
func (r *ReviewRepository) FindByID(ctx context.Context, id int64) (*models.ReviewRecord, error) {
	const query = `SELECT ` + reviewColumns + ` FROM incentive_review WHERE id = $1`

	var rec models.ReviewRecord
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find review %d: %w", id, err)
	}
	return &rec, nil
}

// CurrentRecords returns every record still flagged current for a booking,
// newest first. Callers expect at most one; more than one is a consistency
// violation the service self-heals.
func (r *ReviewRepository) CurrentRecords(ctx context.Context, bookingID int64) ([]models.ReviewRecord, error) {
	const query = `SELECT ` + reviewColumns + ` FROM incentive_review WHERE booking_id = $1 AND current = true ORDER BY review_time DESC, id DESC`

	var recs []models.ReviewRecord
	if err := r.db.SelectContext(ctx, &recs, query, bookingID); err != nil {
		return nil, fmt.Errorf("current reviews for booking %d: %w", bookingID, err)
	}
	return recs, nil
}

// HistoryByBooking returns the full ledger for one booking ordered by
// review time descending, id descending as tie-break for bulk-migrated
// records sharing a timestamp.
func (r *ReviewRepository) HistoryByBooking(ctx context.Context, bookingID int64) ([]models.ReviewRecord, error) {
	const query = `SELECT ` + reviewColumns + ` FROM incentive_review WHERE booking_id = $1 ORDER BY review_time DESC, id DESC`

	var recs []models.ReviewRecord
	if err := r.db.SelectContext(ctx, &recs, query, bookingID); err != nil {
		return nil, fmt.Errorf("history for booking %d: %w", bookingID, err)
	}
	return recs, nil
}

// HistoryByPrisoner returns the ledger across all bookings sharing a
// prisoner number, same ordering as HistoryByBooking.
func (r *ReviewRepository) HistoryByPrisoner(ctx context.Context, prisonerNumber string) ([]models.ReviewRecord, error) {
	const query = `SELECT ` + reviewColumns + ` FROM incentive_review WHERE prisoner_number = $1 ORDER BY review_time DESC, id DESC`

	var recs []models.ReviewRecord
	if err := r.db.SelectContext(ctx, &recs, query, prisonerNumber); err != nil {
		return nil, fmt.Errorf("history for prisoner %s: %w", prisonerNumber, err)
	}
	return recs, nil
}

// HistoryByBookings returns ledgers for a set of bookings in one query.
func (r *ReviewRepository) HistoryByBookings(ctx context.Context, bookingIDs []int64) ([]models.ReviewRecord, error) {
	if len(bookingIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + reviewColumns + ` FROM incentive_review WHERE booking_id = ANY($1) ORDER BY review_time DESC, id DESC`

	var recs []models.ReviewRecord
	if err := r.db.SelectContext(ctx, &recs, query, pq.Array(bookingIDs)); err != nil {
		return nil, fmt.Errorf("history for bookings: %w", err)
	}
	return recs, nil
}

// CurrentForBookings returns the current record per booking for a set of
// bookings.
func (r *ReviewRepository) CurrentForBookings(ctx context.Context, bookingIDs []int64) ([]models.ReviewRecord, error) {
	if len(bookingIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + reviewColumns + ` FROM incentive_review WHERE booking_id = ANY($1) AND current = true ORDER BY review_time DESC, id DESC`

	var recs []models.ReviewRecord
	if err := r.db.SelectContext(ctx, &recs, query, pq.Array(bookingIDs)); err != nil {
		return nil, fmt.Errorf("current reviews for bookings: %w", err)
	}
	return recs, nil
}

// AnyOnLevel reports whether any of the given bookings is currently on the
// level. Used to block deactivating a level still assigned to someone.
func (r *ReviewRepository) AnyOnLevel(ctx context.Context, bookingIDs []int64, levelCode string) (bool, error) {
	if len(bookingIDs) == 0 {
		return false, nil
	}
	const query = `
SELECT EXISTS(
	SELECT 1
	FROM incentive_review
	WHERE current IS TRUE AND level_code = $1 AND booking_id = ANY($2)
)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, levelCode, pq.Array(bookingIDs)); err != nil {
		return false, fmt.Errorf("check level %s in use: %w", levelCode, err)
	}
	return exists, nil
}

// UpdateReviewParams patches an existing ledger record. Nil fields are
// left unchanged.
type UpdateReviewParams struct {
	ReviewTime  *time.Time
	CommentText *string
	Current     *bool
}

// Update applies an administrative correction. Setting Current to true
// clears the flag on every other record of the booking inside the same
// transaction.
func (r *ReviewRepository) Update(ctx context.Context, rec models.ReviewRecord, params UpdateReviewParams) (out *models.ReviewRecord, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin review update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if params.Current != nil && *params.Current {
		const clearQuery = `UPDATE incentive_review SET current = false WHERE booking_id = $1 AND current = true AND id != $2`
		if _, err = tx.ExecContext(ctx, clearQuery, rec.BookingID, rec.ID); err != nil {
			return nil, fmt.Errorf("clear current for booking %d: %w", rec.BookingID, err)
		}
	}

	reviewTime := rec.ReviewTime
	if params.ReviewTime != nil {
		reviewTime = *params.ReviewTime
	}
	comment := rec.CommentText
	if params.CommentText != nil {
		comment = params.CommentText
	}
	current := rec.Current
	if params.Current != nil {
		current = *params.Current
	}

	const updateQuery = `
UPDATE incentive_review SET review_time = $1, comment_text = $2, current = $3 WHERE id = $4
RETURNING ` + reviewColumns

	var updated models.ReviewRecord
	if err = tx.GetContext(ctx, &updated, updateQuery, reviewTime, comment, current, rec.ID); err != nil {
		return nil, fmt.Errorf("update review %d: %w", rec.ID, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit review update: %w", err)
	}
	return &updated, nil
}

// Delete removes a ledger record. When the deleted record was current the
// latest remaining record for the booking is promoted in the same
// transaction.
func (r *ReviewRepository) Delete(ctx context.Context, rec models.ReviewRecord) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const deleteQuery = `DELETE FROM incentive_review WHERE id = $1`
	if _, err = tx.ExecContext(ctx, deleteQuery, rec.ID); err != nil {
		return fmt.Errorf("delete review %d: %w", rec.ID, err)
	}

	if rec.Current {
		const promoteQuery = `
UPDATE incentive_review SET current = true
WHERE id = (
	SELECT id FROM incentive_review WHERE booking_id = $1 ORDER BY review_time DESC, id DESC LIMIT 1
)`
		if _, err = tx.ExecContext(ctx, promoteQuery, rec.BookingID); err != nil {
			return fmt.Errorf("promote latest review for booking %d: %w", rec.BookingID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit review delete: %w", err)
	}
	return nil
}

// MakeSoleCurrent repairs a booking observed with more than one current
// record: the given id keeps the flag, everything else loses it.
func (r *ReviewRepository) MakeSoleCurrent(ctx context.Context, bookingID, id int64) error {
	const query = `UPDATE incentive_review SET current = false WHERE booking_id = $1 AND current = true AND id != $2`
	if _, err := r.db.ExecContext(ctx, query, bookingID, id); err != nil {
		return fmt.Errorf("repair current flag for booking %d: %w", bookingID, err)
	}
	return nil
}
