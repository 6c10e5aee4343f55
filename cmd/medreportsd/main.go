package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/internal/common"
	"github.com/joseph-ayodele/medreports/internal/extract"
	"github.com/joseph-ayodele/medreports/internal/logging"
	"github.com/joseph-ayodele/medreports/internal/ocr"
	"github.com/joseph-ayodele/medreports/internal/pipeline"
	"github.com/joseph-ayodele/medreports/internal/ranges"
	"github.com/joseph-ayodele/medreports/internal/reports"
	"github.com/joseph-ayodele/medreports/internal/repository"
	"github.com/joseph-ayodele/medreports/internal/server"
)

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "medreportsd",
		Short:         "Medical report extraction and analysis service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the environment")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(dbhealthCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app is the configuration and logger every command starts from.
type app struct {
	cfg    *common.Config
	logger *zap.Logger
}

func loadApp() (*app, error) {
	cfg, err := common.LoadConfig(envFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func (a *app) repoConfig() repository.Config {
	return server.RepositoryConfig(a.cfg.Database)
}

func (a *app) analyzer() (*pipeline.Analyzer, error) {
	if a.cfg.RangesFile == "" {
		return pipeline.NewAnalyzer(nil), nil
	}
	table, err := ranges.LoadFile(a.cfg.RangesFile)
	if err != nil {
		return nil, err
	}
	a.logger.Info("loaded reference ranges", zap.String("file", a.cfg.RangesFile), zap.Int("entries", table.Len()))
	return pipeline.NewAnalyzer(table), nil
}

func (a *app) textExtractor() extract.TextExtractor {
	o := a.cfg.OCR
	threshold := uint8(o.Threshold)
	e := ocr.NewExtractor(ocr.Config{
		Pdftoppm:            o.Pdftoppm,
		Tesseract:           o.Tesseract,
		TesseractLang:       o.Language,
		TessdataDir:         o.TessdataDir,
		DPI:                 o.DPI,
		MaxPages:            o.MaxPages,
		Threshold:           &threshold,
		EnableTSVConfidence: o.Confidence,
		TempDir:             o.TempDir,
	}, a.logger)
	return extract.NewOCRAdapter(e, a.logger)
}

// processing wires the report services and the processor over store.
func (a *app) processing(store *repository.Store) (*reports.Service, *pipeline.Processor, *pipeline.Analyzer, error) {
	analyzer, err := a.analyzer()
	if err != nil {
		return nil, nil, nil, err
	}
	reportSvc := reports.NewService(store.Reports, a.logger, reports.Options{Keep: a.cfg.Storage.KeepReports})
	proc := pipeline.NewProcessor(a.logger,
		pipeline.NewTextStage(store.Reports, a.textExtractor(), a.logger),
		pipeline.NewAnalyzeStage(store.Reports, analyzer, a.logger),
		reportSvc,
	)
	return reportSvc, proc, analyzer, nil
}
