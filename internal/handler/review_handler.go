package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/justice-digital/incentives-engine/internal/models"
	"github.com/justice-digital/incentives-engine/internal/service"
	appErrors "github.com/justice-digital/incentives-engine/pkg/errors"
	"github.com/justice-digital/incentives-engine/pkg/response"
)

type ledger interface {
	SubmitReview(ctx context.Context, req service.SubmitReviewRequest) (*models.ReviewRecord, error)
	GetCurrent(ctx context.Context, bookingID int64) (*models.ReviewRecord, error)
	GetHistoryByBooking(ctx context.Context, bookingID int64) ([]models.ReviewRecord, error)
	GetHistoryByPrisoner(ctx context.Context, prisonerNumber string) ([]models.ReviewRecord, error)
	GetCurrentForBookings(ctx context.Context, bookingIDs []int64) ([]models.ReviewRecord, error)
	AnyPrisonerOnLevel(ctx context.Context, bookingIDs []int64, levelCode string) (bool, error)
	UpdateReview(ctx context.Context, bookingID, reviewID int64, req service.UpdateReviewRequest) (*models.ReviewRecord, error)
	DeleteReview(ctx context.Context, bookingID, reviewID int64, deletedBy string) error
}

// ReviewHandler exposes the review ledger over HTTP.
type ReviewHandler struct {
	ledger ledger
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(ledger ledger) *ReviewHandler {
	return &ReviewHandler{ledger: ledger}
}

// Register mounts the ledger routes.
func (h *ReviewHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/reviews", h.submit)
	rg.GET("/bookings/:bookingId/reviews/current", h.current)
	rg.GET("/bookings/:bookingId/reviews", h.historyByBooking)
	rg.GET("/prisoners/:prisonerNumber/reviews", h.historyByPrisoner)
	rg.GET("/reviews/current", h.currentForBookings)
	rg.GET("/levels/:levelCode/in-use", h.levelInUse)
	rg.PATCH("/bookings/:bookingId/reviews/:reviewId", h.update)
	rg.DELETE("/bookings/:bookingId/reviews/:reviewId", h.delete)
}

func (h *ReviewHandler) submit(c *gin.Context) {
	var req service.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	rec, err := h.ledger.SubmitReview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rec)
}

func (h *ReviewHandler) current(c *gin.Context) {
	bookingID, err := pathInt64(c, "bookingId")
	if err != nil {
		response.Error(c, err)
		return
	}

	rec, err := h.ledger.GetCurrent(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, 200, rec)
}

func (h *ReviewHandler) historyByBooking(c *gin.Context) {
	bookingID, err := pathInt64(c, "bookingId")
	if err != nil {
		response.Error(c, err)
		return
	}

	recs, err := h.ledger.GetHistoryByBooking(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, 200, recs)
}

func (h *ReviewHandler) historyByPrisoner(c *gin.Context) {
	recs, err := h.ledger.GetHistoryByPrisoner(c.Request.Context(), c.Param("prisonerNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, 200, recs)
}

func (h *ReviewHandler) currentForBookings(c *gin.Context) {
	bookingIDs, err := queryInt64List(c, "bookingIds")
	if err != nil {
		response.Error(c, err)
		return
	}

	recs, err := h.ledger.GetCurrentForBookings(c.Request.Context(), bookingIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, 200, recs)
}

func (h *ReviewHandler) levelInUse(c *gin.Context) {
	bookingIDs, err := queryInt64List(c, "bookingIds")
	if err != nil {
		response.Error(c, err)
		return
	}

	inUse, err := h.ledger.AnyPrisonerOnLevel(c.Request.Context(), bookingIDs, c.Param("levelCode"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, 200, gin.H{"inUse": inUse})
}

func (h *ReviewHandler) update(c *gin.Context) {
	bookingID, err := pathInt64(c, "bookingId")
	if err != nil {
		response.Error(c, err)
		return
	}
	reviewID, err := pathInt64(c, "reviewId")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req service.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	rec, err := h.ledger.UpdateReview(c.Request.Context(), bookingID, reviewID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, 200, rec)
}

func (h *ReviewHandler) delete(c *gin.Context) {
	bookingID, err := pathInt64(c, "bookingId")
	if err != nil {
		response.Error(c, err)
		return
	}
	reviewID, err := pathInt64(c, "reviewId")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.ledger.DeleteReview(c.Request.Context(), bookingID, reviewID, c.GetHeader("X-Deleted-By")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func pathInt64(c *gin.Context, name string) (int64, error) {
	value, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return value, nil
}

func queryInt64List(c *gin.Context, name string) ([]int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, name+" is required")
	}
	parts := strings.Split(raw, ",")
	values := make([]int64, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
		}
		values = append(values, value)
	}
	return values, nil
}
