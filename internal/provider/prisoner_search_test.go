package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/justice-digital/incentives-engine/pkg/errors"
)

func TestContextByBookingMapsAlertsToOpenACCT(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prisoner-search/booking/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"bookingId": 42,
			"prisonerNumber": "A1234BC",
			"firstName": "JANE",
			"lastName": "DOE",
			"dateOfBirth": "1990-05-01",
			"receptionDate": "2025-01-10",
			"alerts": [
				{"alertCode": "XA", "active": true},
				{"alertCode": "HA", "active": true}
			]
		}`))
	}))
	defer server.Close()

	client := NewPrisonerSearchClient(server.URL, time.Second, nil)
	ctx, err := client.ContextByBooking(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, "A1234BC", ctx.PrisonerNumber)
	assert.True(t, ctx.HasOpenACCT)
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), ctx.ReceptionDate)
}

func TestContextByBookingIgnoresInactiveACCTAlert(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"bookingId": 42,
			"prisonerNumber": "A1234BC",
			"dateOfBirth": "1990-05-01",
			"receptionDate": "2025-01-10",
			"alerts": [{"alertCode": "HA", "active": false}]
		}`))
	}))
	defer server.Close()

	client := NewPrisonerSearchClient(server.URL, time.Second, nil)
	ctx, err := client.ContextByBooking(context.Background(), 42)

	require.NoError(t, err)
	assert.False(t, ctx.HasOpenACCT)
}

func TestContextByBookingNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewPrisonerSearchClient(server.URL, time.Second, nil)
	_, err := client.ContextByBooking(context.Background(), 42)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRosterMapsUpstreamFailureToProviderUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewPrisonerSearchClient(server.URL, time.Second, nil)
	_, err := client.Roster(context.Background(), "MDI", "MDI-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrProviderUnavailable.Code, appErrors.FromError(err).Code)
}
