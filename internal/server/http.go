// Package server exposes report processing over HTTP (echo) and gRPC.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/internal/common"
	"github.com/joseph-ayodele/medreports/internal/entity"
	"github.com/joseph-ayodele/medreports/internal/export"
	"github.com/joseph-ayodele/medreports/internal/ingest"
	"github.com/joseph-ayodele/medreports/internal/pipeline"
	"github.com/joseph-ayodele/medreports/internal/reports"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportProcessor runs a stored report through the pipeline.
type ReportProcessor interface {
	ProcessReport(ctx context.Context, id uuid.UUID) (*entity.Report, error)
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Deps are the services the HTTP and gRPC surfaces share.
type Deps struct {
	Reports   *reports.Service
	Export    *export.Service
	Ingest    *ingest.Service
	Processor ReportProcessor
	Analyzer  *pipeline.Analyzer
	Health    HealthChecker
	Auth      *Authenticator
	Logger    *zap.Logger
}

type handlers struct {
	Deps
}

// NewHTTP builds the echo instance with all routes registered.
func NewHTTP(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	h := &handlers{Deps: d}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = h.errorHandler

	e.Use(Recovery(d.Logger))
	e.Use(RequestID())
	e.Use(Logger(d.Logger))

	e.GET("/healthz", h.healthz)

	v1 := e.Group("/v1", d.Auth.Middleware(d.Logger))
	v1.POST("/reports", h.uploadReport)
	v1.GET("/reports", h.listReports)
	v1.GET("/reports/:id", h.getReport)
	v1.GET("/reports/:id/summary.xlsx", h.reportSummary)
	v1.GET("/dashboard", h.dashboard)
	v1.GET("/export.xlsx", h.exportHistory)
	v1.POST("/analyze", h.analyze)
	v1.POST("/compare", h.compare)
	return e
}

// errorHandler renders every error as {"message": ...} and hides internal causes.
func (h *handlers) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		he = common.ToHTTPError(err)
	}
	msg := he.Message
	if he.Code == http.StatusInternalServerError {
		msg = "internal error"
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.JSON(he.Code, echo.Map{"message": msg})
	}
	if err != nil {
		h.Logger.Warn("http.error_response.failed", zap.Error(err))
	}
}

func (h *handlers) healthz(c echo.Context) error {
	if h.Health != nil {
		if err := h.Health.HealthCheck(c.Request().Context(), 2*time.Second); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func owner(c echo.Context) string {
	return common.OwnerIDFromContext(c.Request().Context())
}

func reportID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, common.InvalidInputf("report id must be a UUID")
	}
	return id, nil
}
