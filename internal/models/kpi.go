package models

import "time"

// KpiSnapshot is one immutable daily rollup of estate-wide review
// compliance statistics. Exactly one row exists per day.
type KpiSnapshot struct {
	Day                            time.Time `db:"day" json:"day"`
	OverdueReviews                 int       `db:"overdue_reviews" json:"overdueReviews"`
	PreviousMonthReviewsConducted  int       `db:"previous_month_reviews_conducted" json:"previousMonthReviewsConducted"`
	PreviousMonthPrisonersReviewed int       `db:"previous_month_prisoners_reviewed" json:"previousMonthPrisonersReviewed"`
	WhenCreated                    time.Time `db:"when_created" json:"whenCreated"`
}
