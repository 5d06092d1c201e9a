package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/justice-digital/incentives-engine/internal/models"
)

// acctAlertCode marks an open self-harm monitoring plan on a prisoner's
// alert list.
const acctAlertCode = "HA"

// PrisonerSearchClient looks up prisoner attributes and location rosters
// from the prisoner search service.
type PrisonerSearchClient struct {
	httpClient
}

// NewPrisonerSearchClient constructs the client.
func NewPrisonerSearchClient(baseURL string, timeout time.Duration, logger *zap.Logger) *PrisonerSearchClient {
	return &PrisonerSearchClient{httpClient: newHTTPClient(baseURL, timeout, logger)}
}

type prisonerDTO struct {
	BookingID      int64   `json:"bookingId"`
	PrisonerNumber string  `json:"prisonerNumber"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	DateOfBirth    apiDate `json:"dateOfBirth"`
	ReceptionDate  apiDate `json:"receptionDate"`
	Alerts         []struct {
		AlertCode string `json:"alertCode"`
		Active    bool   `json:"active"`
	} `json:"alerts"`
}

func (d prisonerDTO) toReviewContext() models.PrisonerReviewContext {
	ctx := models.PrisonerReviewContext{
		BookingID:      d.BookingID,
		PrisonerNumber: d.PrisonerNumber,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		DateOfBirth:    d.DateOfBirth.Time,
		ReceptionDate:  d.ReceptionDate.Time,
	}
	for _, alert := range d.Alerts {
		if alert.Active && alert.AlertCode == acctAlertCode {
			ctx.HasOpenACCT = true
			break
		}
	}
	return ctx
}

// ContextByBooking fetches the review context for one booking.
func (c *PrisonerSearchClient) ContextByBooking(ctx context.Context, bookingID int64) (*models.PrisonerReviewContext, error) {
	var dto prisonerDTO
	if err := c.getJSON(ctx, fmt.Sprintf("/prisoner-search/booking/%d", bookingID), &dto); err != nil {
		return nil, err
	}
	result := dto.toReviewContext()
	return &result, nil
}

// ContextByPrisonerNumber fetches the review context for one prisoner.
func (c *PrisonerSearchClient) ContextByPrisonerNumber(ctx context.Context, prisonerNumber string) (*models.PrisonerReviewContext, error) {
	var dto prisonerDTO
	if err := c.getJSON(ctx, "/prisoner-search/prisoner/"+url.PathEscape(prisonerNumber), &dto); err != nil {
		return nil, err
	}
	result := dto.toReviewContext()
	return &result, nil
}

type rosterResponse struct {
	Content []prisonerDTO `json:"content"`
}

// Roster returns every prisoner currently resident at a location. An
// empty locationID returns the whole prison.
func (c *PrisonerSearchClient) Roster(ctx context.Context, prisonID, locationID string) ([]models.PrisonerReviewContext, error) {
	path := "/prisoner-search/prison/" + url.PathEscape(prisonID)
	if locationID != "" {
		path += "/location/" + url.PathEscape(locationID)
	}

	var resp rosterResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}

	contexts := make([]models.PrisonerReviewContext, 0, len(resp.Content))
	for _, dto := range resp.Content {
		contexts = append(contexts, dto.toReviewContext())
	}
	return contexts, nil
}
