package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/internal/common"
	"github.com/joseph-ayodele/medreports/internal/export"
)

// uploadReport stores the multipart "report" file and processes it before answering.
func (h *handlers) uploadReport(c echo.Context) error {
	ctx := c.Request().Context()
	log := common.LoggerFromContext(ctx, h.Logger)

	fh, err := c.FormFile("report")
	if err != nil {
		return common.InvalidInputf("multipart field \"report\" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	res, err := h.Ingest.IngestUpload(ctx, owner(c), fh.Filename, fh.Size, f)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(res.ReportID)
	if err != nil {
		return fmt.Errorf("parse report id: %w", err)
	}
	if res.Deduplicated {
		rep, err := h.Reports.Get(ctx, owner(c), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, rep)
	}

	rep, err := h.Processor.ProcessReport(ctx, id)
	if err != nil {
		log.Warn("http.upload.process_failed", zap.String("report_id", res.ReportID), zap.Error(err))
		if rep == nil {
			return err
		}
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"message": "report could not be processed",
			"report":  rep,
		})
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *handlers) listReports(c echo.Context) error {
	items, err := h.Reports.History(c.Request().Context(), owner(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"reports": items})
}

func (h *handlers) getReport(c echo.Context) error {
	id, err := reportID(c)
	if err != nil {
		return err
	}
	rep, err := h.Reports.Get(c.Request().Context(), owner(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *handlers) reportSummary(c echo.Context) error {
	id, err := reportID(c)
	if err != nil {
		return err
	}
	rep, err := h.Reports.Get(c.Request().Context(), owner(c), id)
	if err != nil {
		return err
	}
	b, err := export.SummaryXLSX(rep)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "report-summary-"+id.String()+".xlsx"))
	return c.Blob(http.StatusOK, xlsxMIME, b)
}

func (h *handlers) dashboard(c echo.Context) error {
	d, err := h.Reports.Dashboard(c.Request().Context(), owner(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *handlers) exportHistory(c echo.Context) error {
	b, err := h.Export.HistoryXLSX(c.Request().Context(), owner(c))
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="reports.xlsx"`)
	return c.Blob(http.StatusOK, xlsxMIME, b)
}
