package models

import "time"

// ReviewType describes why an incentive review record was created.
type ReviewType string

const (
	ReviewTypeInitial     ReviewType = "INITIAL"
	ReviewTypeReview      ReviewType = "REVIEW"
	ReviewTypeTransfer    ReviewType = "TRANSFER"
	ReviewTypeMigrated    ReviewType = "MIGRATED"
	ReviewTypeReadmission ReviewType = "READMISSION"
)

// IsReal reports whether a record of this type counts as a compliance
// review. Migrated and legacy records without a type are treated as real
// because there is no better signal to discriminate them.
func (t ReviewType) IsReal() bool {
	switch t {
	case ReviewTypeReview, ReviewTypeMigrated, "":
		return true
	default:
		return false
	}
}

// Known returns true for review types the engine accepts on submission.
func (t ReviewType) Known() bool {
	switch t {
	case ReviewTypeInitial, ReviewTypeReview, ReviewTypeTransfer, ReviewTypeMigrated, ReviewTypeReadmission:
		return true
	default:
		return false
	}
}

// ReviewRecord is one row of the append-only review ledger. At most one
// record per booking carries Current = true.
type ReviewRecord struct {
	ID             int64      `db:"id" json:"id"`
	BookingID      int64      `db:"booking_id" json:"bookingId"`
	PrisonerNumber string     `db:"prisoner_number" json:"prisonerNumber"`
	PrisonID       string     `db:"prison_id" json:"prisonId"`
	LevelCode      string     `db:"level_code" json:"levelCode"`
	ReviewTime     time.Time  `db:"review_time" json:"reviewTime"`
	ReviewedBy     *string    `db:"reviewed_by" json:"reviewedBy,omitempty"`
	CommentText    *string    `db:"comment_text" json:"commentText,omitempty"`
	ReviewType     ReviewType `db:"review_type" json:"reviewType"`
	Current        bool       `db:"current" json:"current"`
	WhenCreated    time.Time  `db:"when_created" json:"whenCreated"`
}

// IsReal reports whether this record counts towards compliance metrics.
func (r ReviewRecord) IsReal() bool {
	return r.ReviewType.IsReal()
}
