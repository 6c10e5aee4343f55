package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/entity"
)

// Cleaner enforces per-owner retention after a report has been processed.
type Cleaner interface {
	Cleanup(ctx context.Context, ownerID string) error
}

// Processor coordinates text extraction then analysis for one stored report.
type Processor struct {
	Logger  *zap.Logger
	Text    *TextStage
	Analyze *AnalyzeStage
	Cleaner Cleaner // optional
}

func NewProcessor(logger *zap.Logger, text *TextStage, analyze *AnalyzeStage, cleaner Cleaner) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{Logger: logger, Text: text, Analyze: analyze, Cleaner: cleaner}
}

// ProcessReport runs both stages and returns the updated report. A cleanup
// failure is logged but does not fail the report.
func (p *Processor) ProcessReport(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	rep, res, err := p.Text.Run(ctx, id)
	if err != nil {
		p.Logger.Error("processor.text.failed", zap.String("report_id", id.String()), zap.Error(err))
		return rep, err
	}
	p.Logger.Info("processor.text.ok",
		zap.String("report_id", id.String()),
		zap.String("method", res.Method),
		zap.Int("pages", res.Pages),
		zap.Int("chars", len(res.Text)),
		zap.Duration("took", res.Duration),
	)

	a, err := p.Analyze.Run(ctx, id)
	if err != nil {
		p.Logger.Error("processor.analyze.failed", zap.String("report_id", id.String()), zap.Error(err))
		if stored, gerr := p.Text.Reports.Get(ctx, id); gerr == nil {
			return stored, err
		}
		rep.Status = constants.ReportStatusFailed
		rep.ErrorMessage = err.Error()
		return rep, err
	}
	p.Logger.Info("processor.analyze.ok",
		zap.String("report_id", id.String()),
		zap.Int("compared", len(a.Comparison)),
		zap.String("conclusion", a.Conclusion),
	)

	if p.Cleaner != nil {
		if err := p.Cleaner.Cleanup(ctx, rep.OwnerID); err != nil {
			p.Logger.Warn("processor.cleanup.failed", zap.String("owner_id", rep.OwnerID), zap.Error(err))
		}
	}

	updated, err := p.Text.Reports.Get(ctx, id)
	if err != nil {
		// pruned by retention, or the store went away; fall back to what we computed
		a.Apply(rep)
		return rep, nil
	}
	return updated, nil
}
