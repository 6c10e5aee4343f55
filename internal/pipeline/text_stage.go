package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/entity"
	"github.com/joseph-ayodele/medreports/internal/extract"
	"github.com/joseph-ayodele/medreports/internal/repository"
)

// TextStage is stage 1: stored file -> extracted text on the report.
type TextStage struct {
	Reports       repository.ReportRepository
	TextExtractor extract.TextExtractor
	Logger        *zap.Logger
}

func NewTextStage(reports repository.ReportRepository, tx extract.TextExtractor, logger *zap.Logger) *TextStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextStage{Reports: reports, TextExtractor: tx, Logger: logger}
}

// Run marks the report RUNNING, extracts its text and stores it (TEXT_OK).
// Any failure leaves the report FAILED with the error message.
func (s *TextStage) Run(ctx context.Context, id uuid.UUID) (*entity.Report, extract.TextExtractionResult, error) {
	var res extract.TextExtractionResult
	rep, err := s.Reports.Get(ctx, id)
	if err != nil {
		return nil, res, fmt.Errorf("get report: %w", err)
	}

	if constants.MapExtToFormat(rep.FileExt) == "" {
		err := fmt.Errorf("unsupported format: %s", rep.FileExt)
		s.fail(ctx, rep, err)
		return rep, res, err
	}

	if err := s.Reports.UpdateStatus(ctx, id, constants.ReportStatusRunning, ""); err != nil {
		return rep, res, err
	}

	res, err = s.TextExtractor.Extract(ctx, rep.StoragePath)
	if err != nil {
		s.fail(ctx, rep, err)
		return rep, res, err
	}

	if err := s.Reports.SaveText(ctx, id, res.Text); err != nil {
		return rep, res, err
	}
	rep.ExtractedText = res.Text
	rep.Status = constants.ReportStatusTextOK
	return rep, res, nil
}

// fail records the failure on both the stored row and rep.
func (s *TextStage) fail(ctx context.Context, rep *entity.Report, cause error) {
	rep.Status = constants.ReportStatusFailed
	rep.ErrorMessage = cause.Error()
	if err := s.Reports.UpdateStatus(ctx, rep.ID, rep.Status, rep.ErrorMessage); err != nil {
		s.Logger.Error("failed to mark report failed", zap.String("report_id", rep.ID.String()), zap.Error(err))
	}
}
