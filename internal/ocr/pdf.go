package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/constants"
)

// extractPDF reads the text layer page by page and OCRs only the pages that have none.
// If the document cannot be parsed at all every page is rasterised.
func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.PDF, Language: e.cfg.TesseractLang}

	if _, err := os.Stat(path); err != nil {
		return res, fmt.Errorf("open pdf: %w", err)
	}

	pages, err := readTextLayer(path, e.cfg.MaxPages)
	if err != nil {
		e.logger.Warn("pdf text layer unreadable, falling back to ocr", zap.String("path", path), zap.Error(err))
		res.Warnings = append(res.Warnings, "text layer unreadable: "+err.Error())
		text, n, warns, err := e.pdfToOCR(ctx, path, 0)
		res.Warnings = append(res.Warnings, warns...)
		res.Text, res.Pages, res.Method = text, n, "pdf-ocr"
		return res, err
	}

	blocks := make([]string, 0, len(pages))
	var textPages, ocrPages int
	for i, txt := range pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if strings.TrimSpace(txt) != "" {
			blocks = append(blocks, txt)
			textPages++
			continue
		}

		pageNo := i + 1
		ocrText, _, warns, err := e.pdfToOCR(ctx, path, pageNo)
		res.Warnings = append(res.Warnings, warns...)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", pageNo, err))
			continue
		}
		ocrPages++
		if ocrText != "" {
			blocks = append(blocks, ocrText)
		}
	}

	res.Text = strings.Join(blocks, "\n")
	res.Pages = len(pages)
	switch {
	case ocrPages == 0:
		res.Method = "pdf-text"
	case textPages == 0:
		res.Method = "pdf-ocr"
	default:
		res.Method = "pdf-mixed"
	}
	e.logger.Debug("pdf extracted",
		zap.String("path", path),
		zap.Int("pages", res.Pages),
		zap.Int("text_pages", textPages),
		zap.Int("ocr_pages", ocrPages),
	)
	return res, nil
}

// readTextLayer returns the plain text of each page; pages without text come back empty.
func readTextLayer(path string, maxPages int) (pages []string, err error) {
	// the pdf reader panics on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := r.NumPage()
	if maxPages > 0 && total > maxPages {
		total = maxPages
	}
	pages = make([]string, 0, total)
	// pages are 1-indexed in ledongthuc/pdf
	for i := 1; i <= total; i++ {
		pages = append(pages, pageText(r, i))
	}
	return pages, nil
}

func pageText(r *pdf.Reader, i int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	p := r.Page(i)
	if p.V.IsNull() {
		return ""
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// pdfToOCR rasterises one page (page > 0) or the whole document (page == 0) and
// OCRs the images in page order.
func (e *Extractor) pdfToOCR(ctx context.Context, path string, page int) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "mr-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("failed to remove temp dir", zap.String("dir", tmpDir), zap.Error(rmErr))
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png [-f N -l N] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if page > 0 {
		args = append(args, "-f", strconv.Itoa(page), "-l", strconv.Itoa(page))
	} else if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, prefix)
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
		return "", 0, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	// prefix-1.png, prefix-2.png, ... (zero padded for long documents)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	var warns []string
	for _, img := range matches {
		txt, err := e.tesseract(ctx, img, false)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		txt = strings.TrimSpace(txt)
		if txt == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(txt)
	}
	return b.String(), len(matches), warns, nil
}
