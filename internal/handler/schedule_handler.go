package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/justice-digital/incentives-engine/internal/models"
	"github.com/justice-digital/incentives-engine/pkg/response"
)

type scheduler interface {
	GetOrCompute(ctx context.Context, bookingID int64) (*models.NextReviewDate, error)
	Recompute(ctx context.Context, bookingID int64) (*models.NextReviewDate, error)
}

// ScheduleHandler exposes next review due dates.
type ScheduleHandler struct {
	schedule scheduler
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(schedule scheduler) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule}
}

// Register mounts the schedule routes.
func (h *ScheduleHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/bookings/:bookingId/next-review-date", h.get)
	rg.POST("/bookings/:bookingId/next-review-date", h.recompute)
}

func (h *ScheduleHandler) get(c *gin.Context) {
	bookingID, err := pathInt64(c, "bookingId")
	if err != nil {
		response.Error(c, err)
		return
	}

	row, err := h.schedule.GetOrCompute(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, 200, row)
}

func (h *ScheduleHandler) recompute(c *gin.Context) {
	bookingID, err := pathInt64(c, "bookingId")
	if err != nil {
		response.Error(c, err)
		return
	}

	row, err := h.schedule.Recompute(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, 200, row)
}
