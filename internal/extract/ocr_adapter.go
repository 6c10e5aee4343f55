package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/internal/ocr"
)

// OCRAdapter exposes an ocr.Extractor as a TextExtractor.
type OCRAdapter struct {
	e      *ocr.Extractor
	logger *zap.Logger
}

func NewOCRAdapter(e *ocr.Extractor, logger *zap.Logger) *OCRAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OCRAdapter{e: e, logger: logger}
}

func (a *OCRAdapter) Extract(ctx context.Context, path string) (TextExtractionResult, error) {
	r, err := a.e.Extract(ctx, path)
	if err != nil {
		a.logger.Error("text extraction failed", zap.String("path", path), zap.Error(err))
	} else if len(r.Warnings) > 0 {
		a.logger.Warn("text extraction finished with warnings",
			zap.String("path", path), zap.Strings("warnings", r.Warnings))
	}
	return TextExtractionResult{
		Text:       r.Text,
		Pages:      r.Pages,
		SourceType: r.SourceType,
		Method:     r.Method,
		Language:   r.Language,
		Duration:   r.Duration,
		Warnings:   r.Warnings,
		Confidence: r.Confidence,
	}, err
}
