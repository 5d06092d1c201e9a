package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justice-digital/incentives-engine/internal/models"
	"github.com/justice-digital/incentives-engine/internal/service"
	appErrors "github.com/justice-digital/incentives-engine/pkg/errors"
)

type fakeLedger struct {
	submitted  []service.SubmitReviewRequest
	current    *models.ReviewRecord
	currentErr error
	history    []models.ReviewRecord
	historyErr error
}

func (f *fakeLedger) SubmitReview(_ context.Context, req service.SubmitReviewRequest) (*models.ReviewRecord, error) {
	f.submitted = append(f.submitted, req)
	return &models.ReviewRecord{ID: 1, BookingID: req.BookingID, LevelCode: req.LevelCode, Current: true}, nil
}

func (f *fakeLedger) GetCurrent(_ context.Context, _ int64) (*models.ReviewRecord, error) {
	return f.current, f.currentErr
}

func (f *fakeLedger) GetHistoryByBooking(_ context.Context, _ int64) ([]models.ReviewRecord, error) {
	return f.history, f.historyErr
}

func (f *fakeLedger) GetHistoryByPrisoner(_ context.Context, _ string) ([]models.ReviewRecord, error) {
	return f.history, f.historyErr
}

func (f *fakeLedger) GetCurrentForBookings(_ context.Context, _ []int64) ([]models.ReviewRecord, error) {
	if f.current == nil {
		return nil, nil
	}
	return []models.ReviewRecord{*f.current}, nil
}

func (f *fakeLedger) AnyPrisonerOnLevel(_ context.Context, _ []int64, _ string) (bool, error) {
	return true, nil
}

func (f *fakeLedger) UpdateReview(_ context.Context, bookingID, reviewID int64, _ service.UpdateReviewRequest) (*models.ReviewRecord, error) {
	return &models.ReviewRecord{ID: reviewID, BookingID: bookingID}, nil
}

func (f *fakeLedger) DeleteReview(_ context.Context, _, _ int64, _ string) error {
	return nil
}

func newTestRouter(ledger *fakeLedger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewReviewHandler(ledger).Register(r.Group("/api/v1"))
	return r
}

func TestSubmitEndpointReturnsCreated(t *testing.T) {
	ledger := &fakeLedger{}
	router := newTestRouter(ledger)

	body := `{"bookingId":42,"prisonerNumber":"A1234BC","prisonId":"MDI","levelCode":"STD","comment":"settled","reviewedBy":"officer.smith"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, ledger.submitted, 1)
	assert.Equal(t, int64(42), ledger.submitted[0].BookingID)
}

func TestSubmitEndpointRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(&fakeLedger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader("{"))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCurrentEndpointMapsNotFound(t *testing.T) {
	ledger := &fakeLedger{currentErr: appErrors.ErrNotFound}
	router := newTestRouter(ledger)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/42/reviews/current", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCurrentEndpointRejectsNonNumericBooking(t *testing.T) {
	router := newTestRouter(&fakeLedger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/forty-two/reviews/current", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLevelInUseRequiresBookingIDs(t *testing.T) {
	router := newTestRouter(&fakeLedger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/levels/STD/in-use", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteEndpointReturnsNoContent(t *testing.T) {
	router := newTestRouter(&fakeLedger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/42/reviews/9", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
