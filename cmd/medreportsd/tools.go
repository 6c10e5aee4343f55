package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/internal/async"
	"github.com/joseph-ayodele/medreports/internal/export"
	"github.com/joseph-ayodele/medreports/internal/ingest"
	"github.com/joseph-ayodele/medreports/internal/server"
)

func dbhealthCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "dbhealth",
		Short: "Ping the database and show the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			store, err := server.ConnectDB(ctx, a.cfg.Database, false, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := server.PingDB(ctx, store, a.logger, timeout); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "DB OK (%s)\n", store.Driver())
			return printVersion(cmd, a)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "ping timeout")
	return cmd
}

func analyzeCmd() *cobra.Command {
	var asText bool
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Extract and analyze a single report file without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			analyzer, err := a.analyzer()
			if err != nil {
				return err
			}

			var out any
			if asText {
				raw, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				out = analyzer.Analyze(string(raw))
			} else {
				res, tx, err := analyzer.AnalyzeFile(cmd.Context(), a.textExtractor(), args[0])
				if err != nil {
					return err
				}
				a.logger.Info("text extracted",
					zap.String("method", tx.Method),
					zap.Int("pages", tx.Pages),
					zap.Strings("warnings", tx.Warnings),
				)
				out = res
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&asText, "text", false, "treat the file as already extracted plain text")
	return cmd
}

func ingestCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Ingest and process every supported report under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			if owner == "" {
				owner = a.cfg.Ingest.Owner
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			store, err := server.ConnectDB(ctx, a.cfg.Database, true, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			_, proc, _, err := a.processing(store)
			if err != nil {
				return err
			}
			queue := async.NewProcessorQueue(proc, a.logger,
				async.WithWorkers(a.cfg.Ingest.Workers),
				async.WithQueueSize(a.cfg.Ingest.QueueSize),
				async.WithProcessTimeout(a.cfg.Ingest.ProcessTimeout),
			)
			svc := ingest.NewService(ingest.NewFSIngestor(store.Reports, a.cfg.Storage.UploadDir, a.logger), queue, a.logger)

			results, stats, err := svc.IngestDirectory(ctx, owner, args[0])
			queue.Shutdown(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, r := range results {
				switch {
				case r.Err != "":
					fmt.Fprintf(w, "FAIL  %s: %s\n", r.SourcePath, r.Err)
				case r.Deduplicated:
					fmt.Fprintf(w, "DUP   %s -> %s\n", r.SourcePath, r.ReportID)
				default:
					fmt.Fprintf(w, "OK    %s -> %s\n", r.SourcePath, r.ReportID)
				}
			}
			fmt.Fprintf(w, "scanned=%d matched=%d succeeded=%d deduplicated=%d failed=%d\n",
				stats.Scanned, stats.Matched, stats.Succeeded, stats.Deduplicated, stats.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id for the ingested reports (default INGEST_OWNER)")
	return cmd
}

func exportCmd() *cobra.Command {
	var owner, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an owner's report history to an XLSX file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			store, err := server.ConnectDB(cmd.Context(), a.cfg.Database, false, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			b, err := export.NewService(store.Reports, a.logger).HistoryXLSX(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("reports-%s.xlsx", owner)
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id whose reports are exported")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default reports-<owner>.xlsx)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
