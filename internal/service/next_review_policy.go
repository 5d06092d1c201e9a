package service

import (
	"time"

	"github.com/justice-digital/incentives-engine/internal/models"
	"github.com/justice-digital/incentives-engine/pkg/config"
)

// PolicyInput carries everything the interval policy needs: the prisoner's
// external attributes plus the full review history, newest first.
type PolicyInput struct {
	DateOfBirth   time.Time
	ReceptionDate time.Time
	HasOpenACCT   bool
	History       []models.ReviewRecord
}

// ReviewIntervalPolicy evaluates the configured interval table. Evaluation
// is pure: the same input and table always produce the same due date.
type ReviewIntervalPolicy struct {
	table config.PolicyConfig
}

// NewReviewIntervalPolicy builds a policy from the injected table.
func NewReviewIntervalPolicy(table config.PolicyConfig) ReviewIntervalPolicy {
	return ReviewIntervalPolicy{table: table}
}

// Evaluate computes the next review due date.
//
// A booking with no history is due its initial review within the
// first-review horizon of reception. A prisoner on the basic level is due
// a confirmation review within days; once confirmed on basic the cadence
// is the confirmed interval, shortened when an ACCT is open or the
// prisoner was a young person at review time. Everyone else is due on the
// base interval after their last review.
func (p ReviewIntervalPolicy) Evaluate(in PolicyInput) time.Time {
	if len(in.History) == 0 {
		return dateOf(in.ReceptionDate).AddDate(0, 0, p.table.FirstReviewHorizonDays)
	}

	last := in.History[0]
	lastDate := dateOf(last.ReviewTime)

	if last.LevelCode != p.table.BasicLevelCode {
		return lastDate.AddDate(0, 0, p.table.BaseIntervalDays)
	}

	confirmedBasic := len(in.History) >= 2 && in.History[1].LevelCode == p.table.BasicLevelCode
	if !confirmedBasic {
		return lastDate.AddDate(0, 0, p.table.BasicFirstReviewDays)
	}

	if in.HasOpenACCT || ageAt(in.DateOfBirth, last.ReviewTime) < p.table.YoungPersonAgeYears {
		return lastDate.AddDate(0, 0, p.table.BasicConfirmedShortenedDays)
	}
	return lastDate.AddDate(0, 0, p.table.BasicConfirmedDays)
}

// DaysSinceReview returns whole days between now and the most recent
// history entry. Calling it with empty history is a precondition
// violation; callers must branch on emptiness first.
func DaysSinceReview(history []models.ReviewRecord, now time.Time) int {
	return daysBetween(dateOf(history[0].ReviewTime), dateOf(now))
}

// DaysOnCurrentLevel walks the history newest to oldest while entries
// share the current level, stopping at the first entry on a different
// level. A level adopted, dropped and later re-adopted does not merge
// non-contiguous streaks.
func DaysOnCurrentLevel(history []models.ReviewRecord, now time.Time) int {
	if len(history) == 0 {
		return 0
	}

	currentLevel := history[0].LevelCode
	oldest := history[0]
	for _, rec := range history[1:] {
		if rec.LevelCode != currentLevel {
			break
		}
		oldest = rec
	}
	return daysBetween(dateOf(oldest.ReviewTime), dateOf(now))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func ageAt(dateOfBirth, at time.Time) int {
	years := at.Year() - dateOfBirth.Year()
	anniversary := dateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	return years
}
