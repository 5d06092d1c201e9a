package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justice-digital/incentives-engine/internal/models"
	"github.com/justice-digital/incentives-engine/internal/repository"
	appErrors "github.com/justice-digital/incentives-engine/pkg/errors"
)

type fakeReviewStore struct {
	created      []repository.CreateReviewParams
	createResult *models.ReviewRecord

	byID    map[int64]*models.ReviewRecord
	current []models.ReviewRecord

	repaired      []int64
	updateResult  *models.ReviewRecord
	updated       []repository.UpdateReviewParams
	deleted       []int64
	historyResult []models.ReviewRecord
}

func (f *fakeReviewStore) Create(_ context.Context, params repository.CreateReviewParams) (*models.ReviewRecord, error) {
	f.created = append(f.created, params)
	if f.createResult != nil {
		return f.createResult, nil
	}
	return &models.ReviewRecord{
		ID:             1,
		BookingID:      params.BookingID,
		PrisonerNumber: params.PrisonerNumber,
		PrisonID:       params.PrisonID,
		LevelCode:      params.LevelCode,
		ReviewTime:     params.ReviewTime,
		ReviewType:     params.ReviewType,
		Current:        true,
	}, nil
}

func (f *fakeReviewStore) FindByID(_ context.Context, id int64) (*models.ReviewRecord, error) {
	return f.byID[id], nil
}

func (f *fakeReviewStore) CurrentRecords(_ context.Context, _ int64) ([]models.ReviewRecord, error) {
	return f.current, nil
}

func (f *fakeReviewStore) HistoryByBooking(_ context.Context, _ int64) ([]models.ReviewRecord, error) {
	return f.historyResult, nil
}

func (f *fakeReviewStore) HistoryByPrisoner(_ context.Context, _ string) ([]models.ReviewRecord, error) {
	return f.historyResult, nil
}

func (f *fakeReviewStore) CurrentForBookings(_ context.Context, _ []int64) ([]models.ReviewRecord, error) {
	return f.current, nil
}

func (f *fakeReviewStore) AnyOnLevel(_ context.Context, _ []int64, _ string) (bool, error) {
	return false, nil
}

func (f *fakeReviewStore) Update(_ context.Context, rec models.ReviewRecord, params repository.UpdateReviewParams) (*models.ReviewRecord, error) {
	f.updated = append(f.updated, params)
	if f.updateResult != nil {
		return f.updateResult, nil
	}
	return &rec, nil
}

func (f *fakeReviewStore) Delete(_ context.Context, rec models.ReviewRecord) error {
	f.deleted = append(f.deleted, rec.ID)
	return nil
}

func (f *fakeReviewStore) MakeSoleCurrent(_ context.Context, _ int64, id int64) error {
	f.repaired = append(f.repaired, id)
	return nil
}

type fakeCatalog struct {
	levels []models.IncentiveLevel
	err    error
}

func (f *fakeCatalog) ActiveLevels(_ context.Context, _ string) ([]models.IncentiveLevel, error) {
	return f.levels, f.err
}

type fakeRecomputer struct {
	bookings []int64
	err      error
}

func (f *fakeRecomputer) Recompute(_ context.Context, bookingID int64) (*models.NextReviewDate, error) {
	f.bookings = append(f.bookings, bookingID)
	if f.err != nil {
		return nil, f.err
	}
	return &models.NextReviewDate{BookingID: bookingID}, nil
}

type publishedEvent struct {
	actor     string
	operation string
	subject   string
}

type fakeAudit struct {
	events []publishedEvent
}

func (f *fakeAudit) Publish(actor, operation, subject string, _ interface{}) {
	f.events = append(f.events, publishedEvent{actor: actor, operation: operation, subject: subject})
}

func standardCatalog() *fakeCatalog {
	return &fakeCatalog{levels: []models.IncentiveLevel{
		{Code: "BAS", Description: "Basic", Sequence: 1, Active: true},
		{Code: "STD", Description: "Standard", Sequence: 2, Active: true},
		{Code: "ENH", Description: "Enhanced", Sequence: 3, Active: true},
	}}
}

func validSubmission() SubmitReviewRequest {
	return SubmitReviewRequest{
		BookingID:      42,
		PrisonerNumber: "A1234BC",
		PrisonID:       "MDI",
		LevelCode:      "STD",
		Comment:        "settled on the wing",
		ReviewedBy:     "officer.smith",
	}
}

func TestSubmitReviewCreatesCurrentRecordAndRecomputes(t *testing.T) {
	store := &fakeReviewStore{}
	recomputer := &fakeRecomputer{}
	audit := &fakeAudit{}
	svc := NewLedgerService(store, standardCatalog(), recomputer, audit, nil, nil)

	rec, err := svc.SubmitReview(context.Background(), validSubmission())

	require.NoError(t, err)
	assert.True(t, rec.Current)
	assert.Equal(t, models.ReviewTypeReview, rec.ReviewType)
	require.Len(t, store.created, 1)
	assert.Equal(t, []int64{42}, recomputer.bookings)
	require.Len(t, audit.events, 1)
	assert.Equal(t, models.AuditReviewSubmitted, audit.events[0].operation)
	assert.Equal(t, "officer.smith", audit.events[0].actor)
}

func TestSubmitReviewDefaultsReviewTime(t *testing.T) {
	store := &fakeReviewStore{}
	svc := NewLedgerService(store, standardCatalog(), &fakeRecomputer{}, &fakeAudit{}, nil, nil)
	frozen := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return frozen }

	_, err := svc.SubmitReview(context.Background(), validSubmission())

	require.NoError(t, err)
	assert.Equal(t, frozen, store.created[0].ReviewTime)
}

func TestSubmitReviewRejectsMissingComment(t *testing.T) {
	svc := NewLedgerService(&fakeReviewStore{}, standardCatalog(), &fakeRecomputer{}, &fakeAudit{}, nil, nil)

	req := validSubmission()
	req.Comment = ""
	_, err := svc.SubmitReview(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitReviewRejectsShortLevelCode(t *testing.T) {
	svc := NewLedgerService(&fakeReviewStore{}, standardCatalog(), &fakeRecomputer{}, &fakeAudit{}, nil, nil)

	req := validSubmission()
	req.LevelCode = "S"
	_, err := svc.SubmitReview(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitReviewRejectsInactiveLevel(t *testing.T) {
	svc := NewLedgerService(&fakeReviewStore{}, standardCatalog(), &fakeRecomputer{}, &fakeAudit{}, nil, nil)

	req := validSubmission()
	req.LevelCode = "EN2"
	_, err := svc.SubmitReview(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitReviewRejectsUnknownReviewType(t *testing.T) {
	svc := NewLedgerService(&fakeReviewStore{}, standardCatalog(), &fakeRecomputer{}, &fakeAudit{}, nil, nil)

	req := validSubmission()
	req.ReviewType = "PROMOTION"
	_, err := svc.SubmitReview(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitReviewFailsWhenCatalogUnavailable(t *testing.T) {
	catalog := &fakeCatalog{err: appErrors.ErrProviderUnavailable}
	svc := NewLedgerService(&fakeReviewStore{}, catalog, &fakeRecomputer{}, &fakeAudit{}, nil, nil)

	_, err := svc.SubmitReview(context.Background(), validSubmission())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrProviderUnavailable.Code, appErrors.FromError(err).Code)
}

func TestSubmitReviewSucceedsWhenRecomputeFails(t *testing.T) {
	recomputer := &fakeRecomputer{err: errors.New("search unavailable")}
	svc := NewLedgerService(&fakeReviewStore{}, standardCatalog(), recomputer, &fakeAudit{}, nil, nil)

	rec, err := svc.SubmitReview(context.Background(), validSubmission())

	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestGetCurrentNotFound(t *testing.T) {
	svc := NewLedgerService(&fakeReviewStore{}, standardCatalog(), &fakeRecomputer{}, &fakeAudit{}, nil, nil)

	_, err := svc.GetCurrent(context.Background(), 42)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGetCurrentRepairsDuplicateFlags(t *testing.T) {
	store := &fakeReviewStore{current: []models.ReviewRecord{
		{ID: 9, BookingID: 42, Current: true},
		{ID: 3, BookingID: 42, Current: true},
	}}
	svc := NewLedgerService(store, standardCatalog(), &fakeRecomputer{}, &fakeAudit{}, nil, nil)

	rec, err := svc.GetCurrent(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, int64(9), rec.ID)
	assert.Equal(t, []int64{9}, store.repaired)
}

func TestUpdateReviewRequiresAtLeastOneField(t *testing.T) {
	svc := NewLedgerService(&fakeReviewStore{}, standardCatalog(), &fakeRecomputer{}, &fakeAudit{}, nil, nil)

	_, err := svc.UpdateReview(context.Background(), 42, 9, UpdateReviewRequest{})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateReviewRejectsMismatchedBooking(t *testing.T) {
	store := &fakeReviewStore{byID: map[int64]*models.ReviewRecord{
		9: {ID: 9, BookingID: 7},
	}}
	svc := NewLedgerService(store, standardCatalog(), &fakeRecomputer{}, &fakeAudit{}, nil, nil)

	comment := "corrected"
	_, err := svc.UpdateReview(context.Background(), 42, 9, UpdateReviewRequest{Comment: &comment})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDeleteReviewRecomputesAndAudits(t *testing.T) {
	store := &fakeReviewStore{byID: map[int64]*models.ReviewRecord{
		9: {ID: 9, BookingID: 42, Current: true},
	}}
	recomputer := &fakeRecomputer{}
	audit := &fakeAudit{}
	svc := NewLedgerService(store, standardCatalog(), recomputer, audit, nil, nil)

	err := svc.DeleteReview(context.Background(), 42, 9, "admin")

	require.NoError(t, err)
	assert.Equal(t, []int64{9}, store.deleted)
	assert.Equal(t, []int64{42}, recomputer.bookings)
	require.Len(t, audit.events, 1)
	assert.Equal(t, models.AuditReviewDeleted, audit.events[0].operation)
}
