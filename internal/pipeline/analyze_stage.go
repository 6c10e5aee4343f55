package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/compare"
	"github.com/joseph-ayodele/medreports/internal/repository"
)

// AnalyzeStage is stages 2 to 7 over the text stored by TextStage.
type AnalyzeStage struct {
	Reports  repository.ReportRepository
	Analyzer *Analyzer
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewAnalyzeStage(reports repository.ReportRepository, analyzer *Analyzer, logger *zap.Logger) *AnalyzeStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if analyzer == nil {
		analyzer = NewAnalyzer(nil)
	}
	return &AnalyzeStage{Reports: reports, Analyzer: analyzer, Logger: logger, Now: time.Now}
}

// Run requires the report to be TEXT_OK and leaves it ANALYZED.
func (s *AnalyzeStage) Run(ctx context.Context, id uuid.UUID) (Analysis, error) {
	rep, err := s.Reports.Get(ctx, id)
	if err != nil {
		return Analysis{}, fmt.Errorf("get report: %w", err)
	}
	if rep.Status != constants.ReportStatusTextOK {
		return Analysis{}, fmt.Errorf("report not ready for analysis: status=%s", rep.Status)
	}

	a := s.Analyzer.Analyze(rep.ExtractedText)
	if err := s.Reports.SaveAnalysis(ctx, id, a.Analysis, s.Now()); err != nil {
		_ = s.Reports.UpdateStatus(ctx, id, constants.ReportStatusFailed, err.Error())
		return a, err
	}
	s.Logger.Debug("analysis stored",
		zap.String("report_id", id.String()),
		zap.Int("vitals", a.Vitals.Len()),
		zap.Int("compared", len(a.Comparison)),
		zap.Int("abnormal", compare.CountAbnormal(a.Comparison)),
	)
	return a, nil
}
