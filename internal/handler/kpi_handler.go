package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justice-digital/incentives-engine/internal/models"
	appErrors "github.com/justice-digital/incentives-engine/pkg/errors"
	"github.com/justice-digital/incentives-engine/pkg/response"
)

const dayLayout = "2006-01-02"

type kpiRunner interface {
	RunDaily(ctx context.Context, day time.Time) (*models.KpiSnapshot, bool, error)
	Snapshot(ctx context.Context, day time.Time) (*models.KpiSnapshot, error)
	Snapshots(ctx context.Context, from, to time.Time) ([]models.KpiSnapshot, error)
}

// KpiHandler exposes daily KPI snapshots.
type KpiHandler struct {
	kpis kpiRunner
}

// NewKpiHandler constructs the handler.
func NewKpiHandler(kpis kpiRunner) *KpiHandler {
	return &KpiHandler{kpis: kpis}
}

// Register mounts the KPI routes.
func (h *KpiHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/kpi/runs", h.run)
	rg.GET("/kpi/:day", h.get)
	rg.GET("/kpi", h.list)
}

type runRequest struct {
	Day string `json:"day"`
}

func (h *KpiHandler) run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	day := time.Now().UTC()
	if req.Day != "" {
		parsed, err := time.Parse(dayLayout, req.Day)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day must be formatted YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	snapshot, created, err := h.kpis.RunDaily(c.Request.Context(), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, snapshot)
		return
	}
	response.JSON(c, http.StatusOK, snapshot)
}

func (h *KpiHandler) get(c *gin.Context) {
	day, err := time.Parse(dayLayout, c.Param("day"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day must be formatted YYYY-MM-DD"))
		return
	}

	snapshot, err := h.kpis.Snapshot(c.Request.Context(), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot)
}

func (h *KpiHandler) list(c *gin.Context) {
	from, err := time.Parse(dayLayout, c.DefaultQuery("from", time.Now().UTC().AddDate(0, -1, 0).Format(dayLayout)))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be formatted YYYY-MM-DD"))
		return
	}
	to, err := time.Parse(dayLayout, c.DefaultQuery("to", time.Now().UTC().Format(dayLayout)))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be formatted YYYY-MM-DD"))
		return
	}

	snapshots, err := h.kpis.Snapshots(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshots)
}
