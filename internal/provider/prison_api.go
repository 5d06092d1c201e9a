package provider

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/justice-digital/incentives-engine/internal/models"
)

// Behaviour case-note classifications as the prison reference service
// reports them.
const (
	caseNoteTypePositive = "POS"
	caseNoteTypeNegative = "NEG"

	caseNoteSubTypeEncouragement = "IEP_ENC"
	caseNoteSubTypeWarning       = "IEP_WARN"
)

// PrisonAPIClient reads reference data from the prison service: level
// catalogs, location descriptions, behaviour case notes and adjudications.
type PrisonAPIClient struct {
	httpClient
}

// NewPrisonAPIClient constructs the client.
func NewPrisonAPIClient(baseURL string, timeout time.Duration, logger *zap.Logger) *PrisonAPIClient {
	return &PrisonAPIClient{httpClient: newHTTPClient(baseURL, timeout, logger)}
}

type levelDTO struct {
	Code        string `json:"iepLevel"`
	Description string `json:"iepDescription"`
	Sequence    int    `json:"sequence"`
	Active      bool   `json:"active"`
}

// ActiveLevels returns the active incentive levels configured for a
// prison, in catalog order.
func (c *PrisonAPIClient) ActiveLevels(ctx context.Context, prisonID string) ([]models.IncentiveLevel, error) {
	var dtos []levelDTO
	if err := c.getJSON(ctx, "/prisons/"+url.PathEscape(prisonID)+"/incentive-levels", &dtos); err != nil {
		return nil, err
	}

	levels := make([]models.IncentiveLevel, 0, len(dtos))
	for _, dto := range dtos {
		if !dto.Active {
			continue
		}
		levels = append(levels, models.IncentiveLevel{
			Code:        dto.Code,
			Description: dto.Description,
			Sequence:    dto.Sequence,
			Active:      dto.Active,
		})
	}
	return levels, nil
}

type locationDTO struct {
	Description string `json:"description"`
	UserDesc    string `json:"userDescription"`
}

// LocationDescription returns the human-readable name of a residential
// location.
func (c *PrisonAPIClient) LocationDescription(ctx context.Context, locationID string) (string, error) {
	var dto locationDTO
	if err := c.getJSON(ctx, "/locations/code/"+url.PathEscape(locationID), &dto); err != nil {
		return "", err
	}
	if dto.UserDesc != "" {
		return dto.UserDesc, nil
	}
	return dto.Description, nil
}

// ActivePrisons lists the prison ids of every active establishment.
func (c *PrisonAPIClient) ActivePrisons(ctx context.Context) ([]string, error) {
	var dtos []struct {
		AgencyID string `json:"agencyId"`
		Active   bool   `json:"active"`
	}
	if err := c.getJSON(ctx, "/agencies/prisons", &dtos); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(dtos))
	for _, dto := range dtos {
		if dto.Active {
			ids = append(ids, dto.AgencyID)
		}
	}
	return ids, nil
}

type caseNoteUsageRequest struct {
	BookingID int64  `json:"bookingId"`
	FromDate  string `json:"fromDate"`
}

type caseNoteUsageDTO struct {
	BookingID       int64  `json:"bookingId"`
	CaseNoteType    string `json:"caseNoteType"`
	CaseNoteSubType string `json:"caseNoteSubType"`
	NumCaseNotes    int    `json:"numCaseNotes"`
}

// CaseNoteCounts aggregates behaviour case notes per booking, each counted
// from its own window start.
func (c *PrisonAPIClient) CaseNoteCounts(ctx context.Context, windows map[int64]time.Time) ([]models.CaseNoteCounts, error) {
	if len(windows) == 0 {
		return nil, nil
	}

	body := make([]caseNoteUsageRequest, 0, len(windows))
	for bookingID, from := range windows {
		body = append(body, caseNoteUsageRequest{BookingID: bookingID, FromDate: from.Format(dateLayout)})
	}

	var usage []caseNoteUsageDTO
	if err := c.postJSON(ctx, "/case-notes/usage", body, &usage); err != nil {
		return nil, err
	}

	byBooking := make(map[int64]*models.CaseNoteCounts, len(windows))
	for _, row := range usage {
		counts, ok := byBooking[row.BookingID]
		if !ok {
			counts = &models.CaseNoteCounts{BookingID: row.BookingID}
			byBooking[row.BookingID] = counts
		}
		switch row.CaseNoteType {
		case caseNoteTypePositive:
			counts.PositiveBehaviours += row.NumCaseNotes
			if row.CaseNoteSubType == caseNoteSubTypeEncouragement {
				counts.IncentiveEncouragements += row.NumCaseNotes
			}
		case caseNoteTypeNegative:
			counts.NegativeBehaviours += row.NumCaseNotes
			if row.CaseNoteSubType == caseNoteSubTypeWarning {
				counts.IncentiveWarnings += row.NumCaseNotes
			}
		}
	}

	result := make([]models.CaseNoteCounts, 0, len(byBooking))
	for _, counts := range byBooking {
		result = append(result, *counts)
	}
	return result, nil
}

// ProvenAdjudications counts proven adjudication hearings per booking.
func (c *PrisonAPIClient) ProvenAdjudications(ctx context.Context, bookingIDs []int64) ([]models.ProvenAdjudication, error) {
	if len(bookingIDs) == 0 {
		return nil, nil
	}

	var dtos []models.ProvenAdjudication
	if err := c.postJSON(ctx, "/bookings/proven-adjudications", bookingIDs, &dtos); err != nil {
		return nil, err
	}
	return dtos, nil
}
