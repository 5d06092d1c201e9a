package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justice-digital/incentives-engine/internal/models"
)

type fakeCaseNotes struct {
	windows map[int64]time.Time
	counts  []models.CaseNoteCounts
}

func (f *fakeCaseNotes) CaseNoteCounts(_ context.Context, windows map[int64]time.Time) ([]models.CaseNoteCounts, error) {
	f.windows = windows
	return f.counts, nil
}

type fakeAdjudications struct {
	counts []models.ProvenAdjudication
}

func (f *fakeAdjudications) ProvenAdjudications(_ context.Context, _ []int64) ([]models.ProvenAdjudication, error) {
	return f.counts, nil
}

func TestCountsWindowStartsAtLastRealReview(t *testing.T) {
	now := day("2026-06-01")
	caseNotes := &fakeCaseNotes{}
	svc := NewBehaviourService(caseNotes, &fakeAdjudications{}, 3, nil)

	histories := map[int64][]models.ReviewRecord{
		1: {record("STD", day("2026-05-01"))},
	}
	_, _, err := svc.Counts(context.Background(), histories, now)

	require.NoError(t, err)
	assert.Equal(t, day("2026-05-01"), caseNotes.windows[1])
}

func TestCountsWindowBoundedByDefaultLookback(t *testing.T) {
	now := day("2026-06-01")
	caseNotes := &fakeCaseNotes{}
	svc := NewBehaviourService(caseNotes, &fakeAdjudications{}, 3, nil)

	// Last real review is older than the lookback; transfers never move
	// the window.
	histories := map[int64][]models.ReviewRecord{
		1: {
			{LevelCode: "STD", ReviewTime: day("2026-05-15"), ReviewType: models.ReviewTypeTransfer},
			record("STD", day("2025-01-01")),
		},
	}
	_, _, err := svc.Counts(context.Background(), histories, now)

	require.NoError(t, err)
	assert.Equal(t, day("2026-03-01"), caseNotes.windows[1])
}

func TestCountsKeyedByBooking(t *testing.T) {
	caseNotes := &fakeCaseNotes{counts: []models.CaseNoteCounts{
		{BookingID: 1, PositiveBehaviours: 2},
		{BookingID: 2, NegativeBehaviours: 3},
	}}
	adjudications := &fakeAdjudications{counts: []models.ProvenAdjudication{{BookingID: 2, Count: 1}}}
	svc := NewBehaviourService(caseNotes, adjudications, 3, nil)

	histories := map[int64][]models.ReviewRecord{
		1: {record("STD", day("2026-05-01"))},
		2: {record("ENH", day("2026-05-01"))},
	}
	counts, adj, err := svc.Counts(context.Background(), histories, day("2026-06-01"))

	require.NoError(t, err)
	assert.Equal(t, 2, counts[1].PositiveBehaviours)
	assert.Equal(t, 3, counts[2].NegativeBehaviours)
	assert.Equal(t, 1, adj[2])
	assert.Equal(t, 0, adj[1])
}
