package models

import "time"

// Synthetic level buckets used by location summaries. Prisoners without a
// ledger record fall into the unreviewed bucket when that policy is
// enabled; records whose level is missing from the catalog fall into the
// invalid bucket.
const (
	UnreviewedLevelCode = "UNREVIEWED"
	InvalidLevelCode    = "INVALID"
)

// LocationSummary is the aggregated picture of one residential location:
// per-level prisoner and overdue counts plus per-prisoner behaviour context.
type LocationSummary struct {
	PrisonID            string         `json:"prisonId"`
	LocationID          string         `json:"locationId"`
	LocationDescription string         `json:"locationDescription"`
	Levels              []LevelSummary `json:"levels"`

	TotalPositiveBehaviours int `json:"totalPositiveBehaviours"`
	TotalNegativeBehaviours int `json:"totalNegativeBehaviours"`
}

// LevelSummary groups the location roster by incentive level.
type LevelSummary struct {
	LevelCode    string            `json:"levelCode"`
	LevelName    string            `json:"levelName"`
	ReviewCount  int               `json:"reviewCount"`
	OverdueCount int               `json:"overdueCount"`
	Prisoners    []PrisonerSummary `json:"prisoners"`
}

// PrisonerSummary is one prisoner's row within a level bucket. Behaviour
// counts are informational context only; they never feed overdue status.
type PrisonerSummary struct {
	BookingID           int64      `json:"bookingId"`
	PrisonerNumber      string     `json:"prisonerNumber"`
	FirstName           string     `json:"firstName"`
	LastName            string     `json:"lastName"`
	DaysOnLevel         int        `json:"daysOnLevel"`
	DaysSinceLastReview int        `json:"daysSinceLastReview"`
	NextReviewDate      *time.Time `json:"nextReviewDate,omitempty"`
	Overdue             bool       `json:"overdue"`

	PositiveBehaviours      int `json:"positiveBehaviours"`
	IncentiveEncouragements int `json:"incentiveEncouragements"`
	NegativeBehaviours      int `json:"negativeBehaviours"`
	IncentiveWarnings       int `json:"incentiveWarnings"`
	ProvenAdjudications     int `json:"provenAdjudications"`

	// Degraded marks a row whose ledger state could not be resolved when
	// the unreviewed-bucket policy is "error".
	Degraded bool `json:"degraded,omitempty"`
}
