package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/justice-digital/incentives-engine/internal/models"
	"github.com/justice-digital/incentives-engine/pkg/response"
)

type summarizer interface {
	SummarizeLocation(ctx context.Context, prisonID, locationID string) (*models.LocationSummary, error)
}

// SummaryHandler exposes location summaries.
type SummaryHandler struct {
	summaries summarizer
}

// NewSummaryHandler constructs the handler.
func NewSummaryHandler(summaries summarizer) *SummaryHandler {
	return &SummaryHandler{summaries: summaries}
}

// Register mounts the summary routes.
func (h *SummaryHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/prisons/:prisonId/locations/:locationId/summary", h.location)
}

func (h *SummaryHandler) location(c *gin.Context) {
	summary, err := h.summaries.SummarizeLocation(c.Request.Context(), c.Param("prisonId"), c.Param("locationId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, 200, summary)
}
