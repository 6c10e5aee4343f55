// Package ocr turns report files into raw text: the PDF text layer where there is
// one, tesseract everywhere else.
package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/constants"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for pages without a text layer, default 300
	MaxPages      int // 0 = no limit

	// Image preprocessing: pixels brighter than Threshold become white, the rest black.
	// nil selects DefaultThreshold; an explicit 0 is kept.
	Threshold *uint8
	PSM       int // page segmentation mode for images, default 6
	OEM       int // engine mode for images, default 3

	EnableTSVConfidence bool

	TempDir string // scratch space for rendered pages; "" -> os.TempDir()
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string // "pdf-text" | "pdf-ocr" | "pdf-mixed" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// DefaultThreshold is the binarization cut-off used when none is configured.
const DefaultThreshold uint8 = 150

type Extractor struct {
	cfg       Config
	threshold uint8
	runner    Runner
	logger    *zap.Logger
}

func NewExtractor(cfg Config, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	threshold := DefaultThreshold
	if cfg.Threshold != nil {
		threshold = *cfg.Threshold
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	if cfg.OEM <= 0 {
		cfg.OEM = 3
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Extractor{cfg: cfg, threshold: threshold, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner, mostly for tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// ExtractText is the plain acquisition boundary: unsupported extensions give
// empty text, unreadable files give an error.
func (e *Extractor) ExtractText(ctx context.Context, path, ext string) (string, error) {
	res, err := e.extract(ctx, path, ext)
	return res.Text, err
}

// Extract picks a strategy based on the file's extension.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	return e.extract(ctx, path, filepath.Ext(path))
}

func (e *Extractor) extract(ctx context.Context, path, ext string) (ExtractionResult, error) {
	start := time.Now()
	ext = constants.NormalizeExt(ext)
	e.logger.Debug("starting text extraction", zap.String("path", path), zap.String("ext", ext))

	var (
		res ExtractionResult
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	default:
		e.logger.Warn("unsupported extension, returning empty text", zap.String("extension", ext))
		res = ExtractionResult{Warnings: []string{fmt.Sprintf("unsupported extension: %q", ext)}}
	}
	res.Duration = time.Since(start)
	return res, err
}
