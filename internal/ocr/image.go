package ocr

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/constants"
)

// extractImage binarizes the image and runs tesseract on the result. An image that
// cannot be decoded yields empty text rather than an error.
func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.IMAGE, Method: "image-ocr", Language: e.cfg.TesseractLang, Pages: 1}

	f, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("open image: %w", err)
	}
	img, format, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		e.logger.Warn("image could not be decoded", zap.String("path", path), zap.Error(err))
		res.Warnings = append(res.Warnings, "decode image: "+err.Error())
		return res, nil
	}

	prepared, cleanup, err := e.writePreprocessed(img)
	if err != nil {
		return res, err
	}
	defer cleanup()

	txt, err := e.tesseract(ctx, prepared, true)
	if err != nil {
		return res, err
	}
	res.Text = txt

	if e.cfg.EnableTSVConfidence {
		conf, err := e.tesseractTSVConfidence(ctx, prepared)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		} else {
			res.Confidence = conf
		}
	}

	e.logger.Debug("image extracted",
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("chars", len(txt)),
		zap.Float32("confidence", res.Confidence),
	)
	return res, nil
}

func (e *Extractor) writePreprocessed(img image.Image) (string, func(), error) {
	out, err := os.CreateTemp(e.cfg.TempDir, "mr-img-*.png")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(out.Name()) }

	if err := png.Encode(out, Binarize(img, e.threshold)); err != nil {
		_ = out.Close()
		cleanup()
		return "", nil, fmt.Errorf("encode preprocessed image: %w", err)
	}
	if err := out.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return out.Name(), cleanup, nil
}

// tesseract runs `tesseract <file> stdout`; image mode adds the fixed engine and
// page segmentation options.
func (e *Extractor) tesseract(ctx context.Context, path string, imageMode bool) (string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(path, imageMode)...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

func (e *Extractor) tesseractArgs(path string, imageMode bool) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if imageMode {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM), "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}
