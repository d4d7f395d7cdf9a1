package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"healthtracker/internal/models"
)

type Reports interface {
	WriteReport(ctx context.Context, userID uuid.UUID, f models.MeasurementFilter, w io.Writer) error
}

type ReportHandler struct {
	reports Reports
	log     *slog.Logger
}

func NewReportHandler(reports Reports, log *slog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, log: log}
}

// @Summary      Measurement report
// @Description  PDF with a per-kind summary and every measurement in the period
// @Tags         Measurements
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        kind  query     string  false  "Kind"
// @Param        from  query     string  false  "From (RFC 3339)"
// @Param        to    query     string  false  "To (RFC 3339)"
// @Success      200   {file}    file
// @Failure      400   {object}  map[string]string
// @Router       /measurements/report [get]
func (h *ReportHandler) Measurements(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	f, err := parseFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var buf bytes.Buffer
	if err := h.reports.WriteReport(c.Request.Context(), userID, f, &buf); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="health-report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
