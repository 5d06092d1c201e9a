package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/justice-digital/incentives-engine/pkg/errors"
	"github.com/justice-digital/incentives-engine/pkg/export"
	"github.com/justice-digital/incentives-engine/pkg/response"
)

// ReportHandler renders downloadable reports: KPI history as CSV and
// location summaries as PDF.
type ReportHandler struct {
	kpis      kpiRunner
	summaries summarizer
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
}

// NewReportHandler constructs the handler.
func NewReportHandler(kpis kpiRunner, summaries summarizer) *ReportHandler {
	return &ReportHandler{
		kpis:      kpis,
		summaries: summaries,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
}

// Register mounts the report routes.
func (h *ReportHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/reports/kpi.csv", h.kpiCSV)
	rg.GET("/reports/prisons/:prisonId/locations/:locationId/summary.pdf", h.summaryPDF)
}

func (h *ReportHandler) kpiCSV(c *gin.Context) {
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

	table := export.Table{
		Headers: []string{"Day", "Overdue reviews", "Reviews conducted (prev month)", "Prisoners reviewed (prev month)"},
	}
	for _, snapshot := range snapshots {
		table.Rows = append(table.Rows, []string{
			snapshot.Day.Format(dayLayout),
			strconv.Itoa(snapshot.OverdueReviews),
			strconv.Itoa(snapshot.PreviousMonthReviewsConducted),
			strconv.Itoa(snapshot.PreviousMonthPrisonersReviewed),
		})
	}

	payload, err := h.csv.Render(table)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="kpi.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

func (h *ReportHandler) summaryPDF(c *gin.Context) {
	prisonID := c.Param("prisonId")
	locationID := c.Param("locationId")

	summary, err := h.summaries.SummarizeLocation(c.Request.Context(), prisonID, locationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	table := export.Table{
		Headers: []string{"Level", "Prisoners", "Overdue"},
	}
	for _, level := range summary.Levels {
		table.Rows = append(table.Rows, []string{
			level.LevelName,
			strconv.Itoa(level.ReviewCount),
			strconv.Itoa(level.OverdueCount),
		})
	}

	footer := []string{
		fmt.Sprintf("Positive behaviour entries: %d", summary.TotalPositiveBehaviours),
		fmt.Sprintf("Negative behaviour entries: %d", summary.TotalNegativeBehaviours),
	}

	payload, err := h.pdf.Render(table, fmt.Sprintf("Incentive summary %s %s", prisonID, summary.LocationDescription), footer)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="summary-%s-%s.pdf"`, prisonID, locationID))
	c.Data(http.StatusOK, "application/pdf", payload)
}
