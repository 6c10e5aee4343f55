package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/internal/async"
	"github.com/joseph-ayodele/medreports/internal/common"
)

// Service ingests files and hands new reports to the processing queue.
type Service struct {
	ingestor Ingestor
	queue    async.Queue
	logger   *zap.Logger
}

// NewService creates a new ingest service. A nil queue stores reports
// without scheduling them.
func NewService(ing Ingestor, q async.Queue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ingestor: ing, queue: q, logger: logger}
}

// IngestFile ingests a single file from disk.
func (s *Service) IngestFile(ctx context.Context, ownerID, path string) (IngestionResult, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return IngestionResult{}, common.InvalidInputf("path is required")
	}
	r, err := s.ingestor.IngestPath(ctx, ownerID, path)
	if err != nil {
		s.logger.Warn("ingest.file.failed", zap.String("owner_id", ownerID), zap.String("path", path), zap.Error(err))
		return r, err
	}
	return r, s.schedule(ctx, ownerID, r)
}

// IngestUpload stores an uploaded file without scheduling it, so the caller
// can process it synchronously.
func (s *Service) IngestUpload(ctx context.Context, ownerID, filename string, size int64, body io.Reader) (IngestionResult, error) {
	return s.ingestor.IngestReader(ctx, ownerID, filename, size, body)
}

// IngestDirectory ingests every supported file under root, skipping hidden entries.
func (s *Service) IngestDirectory(ctx context.Context, ownerID, root string) ([]IngestionResult, DirStats, error) {
	results, stats, err := s.ingestor.IngestDirectory(ctx, ownerID, strings.TrimSpace(root), true)
	if err != nil {
		return results, stats, err
	}
	for _, r := range results {
		if r.Err != "" {
			continue
		}
		if err := s.schedule(ctx, ownerID, r); err != nil {
			return results, stats, err
		}
	}
	return results, stats, nil
}

// Watch ingests files appearing under the configured roots until ctx is done.
func (s *Service) Watch(ctx context.Context, ownerID string, cfg WatchConfig) error {
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	events, errs, err := StartWatcher(ctx, cfg)
	if err != nil {
		return err
	}
	s.logger.Info("ingest.watch.started", zap.Strings("roots", cfg.Roots), zap.String("owner_id", ownerID))
	for {
		select {
		case p, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			// errors are logged by IngestFile; keep watching
			_, _ = s.IngestFile(ctx, ownerID, p)
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		}
	}
}

func (s *Service) schedule(ctx context.Context, ownerID string, r IngestionResult) error {
	if r.Deduplicated || s.queue == nil {
		return nil
	}
	id, err := uuid.Parse(r.ReportID)
	if err != nil {
		return fmt.Errorf("invalid report id %q: %w", r.ReportID, err)
	}
	if err := s.queue.Enqueue(ctx, async.Job{
		ReportID:    id,
		OwnerID:     ownerID,
		SubmittedAt: time.Now(),
		TraceID:     common.RequestIDFromContext(ctx),
	}); err != nil {
		s.logger.Error("ingest.enqueue.failed", zap.String("report_id", r.ReportID), zap.Error(err))
		return fmt.Errorf("enqueue report: %w", err)
	}
	return nil
}
