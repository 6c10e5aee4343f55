package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/medreports/internal/async"
	"github.com/joseph-ayodele/medreports/internal/export"
	"github.com/joseph-ayodele/medreports/internal/ingest"
	"github.com/joseph-ayodele/medreports/internal/server"
)

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC servers and the inbox watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			return runServer(a, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations on startup")
	return cmd
}

func runServer(a *app, migrate bool) error {
	cfg, logger := a.cfg, a.logger
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := server.ConnectDB(ctx, cfg.Database, migrate, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	reportSvc, proc, analyzer, err := a.processing(store)
	if err != nil {
		return err
	}

	queue := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(cfg.Ingest.ProcessTimeout),
	)
	ingestSvc := ingest.NewService(ingest.NewFSIngestor(store.Reports, cfg.Storage.UploadDir, logger), queue, logger)

	deps := server.Deps{
		Reports:   reportSvc,
		Export:    export.NewService(store.Reports, logger),
		Ingest:    ingestSvc,
		Processor: proc,
		Analyzer:  analyzer,
		Health:    store,
		Auth:      server.NewAuthenticator(cfg.ResolvedAuthMode(), cfg.Auth),
		Logger:    logger,
	}

	errCh := make(chan error, 2)

	e := server.NewHTTP(deps)
	if cfg.Server.HTTPAddr != "" {
		go func() {
			logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
			if err := e.Start(cfg.Server.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	grpcServer, hs := server.NewGRPC(deps)
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		go func() {
			logger.Info("grpc listening", zap.String("addr", cfg.Server.GRPCAddr))
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	if dir := cfg.Ingest.InboxDir; dir != "" {
		go func() {
			err := ingestSvc.Watch(ctx, cfg.Ingest.Owner, ingest.WatchConfig{
				Roots:       []string{dir},
				InitialScan: true,
				Debounce:    cfg.Ingest.Debounce,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("inbox watcher stopped", zap.String("dir", dir), zap.Error(err))
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
		stop()
	}

	logger.Info("shutting down")
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	queue.Shutdown(shutdownCtx)
	return nil
}
