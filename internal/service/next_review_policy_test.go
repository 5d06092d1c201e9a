package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/justice-digital/incentives-engine/internal/models"
	"github.com/justice-digital/incentives-engine/pkg/config"
)

func testPolicyTable() config.PolicyConfig {
	return config.PolicyConfig{
		FirstReviewHorizonDays:      90,
		BaseIntervalDays:            365,
		BasicLevelCode:              "BAS",
		BasicFirstReviewDays:        7,
		BasicConfirmedDays:          28,
		BasicConfirmedShortenedDays: 14,
		YoungPersonAgeYears:         18,
	}
}

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func record(levelCode string, reviewTime time.Time) models.ReviewRecord {
	return models.ReviewRecord{LevelCode: levelCode, ReviewTime: reviewTime, ReviewType: models.ReviewTypeReview}
}

func TestEvaluateNewPrisoner(t *testing.T) {
	policy := NewReviewIntervalPolicy(testPolicyTable())

	due := policy.Evaluate(PolicyInput{ReceptionDate: day("2026-01-10")})

	assert.Equal(t, day("2026-04-10"), due)
}

func TestEvaluateBaseInterval(t *testing.T) {
	policy := NewReviewIntervalPolicy(testPolicyTable())

	due := policy.Evaluate(PolicyInput{
		DateOfBirth:   day("1990-05-01"),
		ReceptionDate: day("2025-01-01"),
		History: []models.ReviewRecord{
			record("STD", day("2026-02-01")),
			record("ENH", day("2025-06-01")),
		},
	})

	assert.Equal(t, day("2027-02-01"), due)
}

func TestEvaluateBasicFirstReview(t *testing.T) {
	policy := NewReviewIntervalPolicy(testPolicyTable())

	due := policy.Evaluate(PolicyInput{
		DateOfBirth:   day("1990-05-01"),
		ReceptionDate: day("2025-01-01"),
		History: []models.ReviewRecord{
			record("BAS", day("2026-03-01")),
			record("STD", day("2025-09-01")),
		},
	})

	assert.Equal(t, day("2026-03-08"), due)
}

func TestEvaluateBasicConfirmed(t *testing.T) {
	policy := NewReviewIntervalPolicy(testPolicyTable())

	due := policy.Evaluate(PolicyInput{
		DateOfBirth:   day("1990-05-01"),
		ReceptionDate: day("2025-01-01"),
		History: []models.ReviewRecord{
			record("BAS", day("2026-03-08")),
			record("BAS", day("2026-03-01")),
		},
	})

	assert.Equal(t, day("2026-04-05"), due)
}

func TestEvaluateBasicConfirmedShortenedByOpenACCT(t *testing.T) {
	policy := NewReviewIntervalPolicy(testPolicyTable())

	due := policy.Evaluate(PolicyInput{
		DateOfBirth:   day("1990-05-01"),
		ReceptionDate: day("2025-01-01"),
		HasOpenACCT:   true,
		History: []models.ReviewRecord{
			record("BAS", day("2026-03-08")),
			record("BAS", day("2026-03-01")),
		},
	})

	assert.Equal(t, day("2026-03-22"), due)
}

func TestEvaluateBasicConfirmedShortenedForYoungPerson(t *testing.T) {
	policy := NewReviewIntervalPolicy(testPolicyTable())

	due := policy.Evaluate(PolicyInput{
		DateOfBirth:   day("2009-01-01"),
		ReceptionDate: day("2025-06-01"),
		History: []models.ReviewRecord{
			record("BAS", day("2026-03-08")),
			record("BAS", day("2026-03-01")),
		},
	})

	assert.Equal(t, day("2026-03-22"), due)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	policy := NewReviewIntervalPolicy(testPolicyTable())
	input := PolicyInput{
		DateOfBirth:   day("1990-05-01"),
		ReceptionDate: day("2025-01-01"),
		History: []models.ReviewRecord{
			record("ENH", day("2026-01-15")),
		},
	}

	first := policy.Evaluate(input)
	second := policy.Evaluate(input)

	assert.Equal(t, first, second)
}

func TestDaysOnCurrentLevelMergesOnlyContiguousStreak(t *testing.T) {
	now := day("2026-06-01")
	history := []models.ReviewRecord{
		record("STD", day("2026-05-01")),
		record("STD", day("2026-03-01")),
		record("ENH", day("2026-01-01")),
		record("STD", day("2025-06-01")),
	}

	// The earlier STD spell is separated by ENH and must not count.
	assert.Equal(t, 92, DaysOnCurrentLevel(history, now))
}

func TestDaysSinceReview(t *testing.T) {
	history := []models.ReviewRecord{record("STD", day("2026-05-20"))}

	assert.Equal(t, 12, DaysSinceReview(history, day("2026-06-01")))
}
