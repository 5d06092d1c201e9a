package models

import "time"

// NextReviewDate is derived, cached state: one row per booking, always
// recomputed from the current review plus external prisoner attributes.
type NextReviewDate struct {
	BookingID   int64      `db:"booking_id" json:"bookingId"`
	DueDate     time.Time  `db:"next_review_date" json:"dueDate"`
	WhenCreated time.Time  `db:"when_created" json:"whenCreated"`
	WhenUpdated *time.Time `db:"when_updated" json:"whenUpdated,omitempty"`
}
