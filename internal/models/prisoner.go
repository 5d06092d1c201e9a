package models

import "time"

// PrisonerReviewContext is the canonical shape of the external prisoner
// data the scheduling policy depends on. Each provider adapts its own DTO
// into this value at the boundary.
type PrisonerReviewContext struct {
	BookingID      int64     `json:"bookingId"`
	PrisonerNumber string    `json:"prisonerNumber"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	DateOfBirth    time.Time `json:"dateOfBirth"`
	ReceptionDate  time.Time `json:"receptionDate"`
	HasOpenACCT    bool      `json:"hasOpenAcct"`
}

// IncentiveLevel is one active level at a prison, from the level catalog.
type IncentiveLevel struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Sequence    int    `json:"sequence"`
	Active      bool   `json:"active"`
}

// CaseNoteCounts aggregates behaviour entries for one booking within the
// behaviour window.
type CaseNoteCounts struct {
	BookingID               int64 `json:"bookingId"`
	PositiveBehaviours      int   `json:"positiveBehaviours"`
	IncentiveEncouragements int   `json:"incentiveEncouragements"`
	NegativeBehaviours      int   `json:"negativeBehaviours"`
	IncentiveWarnings       int   `json:"incentiveWarnings"`
}

// ProvenAdjudication counts proven adjudication hearings for one booking.
type ProvenAdjudication struct {
	BookingID int64 `json:"bookingId"`
	Count     int   `json:"count"`
}
