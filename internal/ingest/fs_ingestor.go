package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/common"
	"github.com/joseph-ayodele/medreports/internal/entity"
	"github.com/joseph-ayodele/medreports/internal/reports"
	"github.com/joseph-ayodele/medreports/internal/repository"
)

// FSIngestor copies report files into UploadDir and creates QUEUED records.
// A file whose sha256 the owner already uploaded is not stored again, unless
// that earlier report FAILED, in which case it is queued once more.
type FSIngestor struct {
	Reports   repository.ReportRepository
	UploadDir string
	Logger    *zap.Logger
}

func NewFSIngestor(reports repository.ReportRepository, uploadDir string, logger *zap.Logger) *FSIngestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FSIngestor{Reports: reports, UploadDir: uploadDir, Logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, ownerID, path string) (IngestionResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return IngestionResult{}, fmt.Errorf("abs path: %w", err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return IngestionResult{}, fmt.Errorf("stat: %w", err)
	}
	if st.IsDir() {
		return IngestionResult{}, common.InvalidInputf("%s is a directory", abs)
	}

	f, err := os.Open(abs)
	if err != nil {
		return IngestionResult{}, fmt.Errorf("open: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			i.Logger.Warn("ingest.close.failed", zap.String("path", abs), zap.Error(err))
		}
	}()

	out, err := i.IngestReader(ctx, ownerID, filepath.Base(abs), st.Size(), f)
	out.SourcePath = abs
	return out, err
}

func (i *FSIngestor) IngestReader(ctx context.Context, ownerID, filename string, size int64, r io.Reader) (IngestionResult, error) {
	out := IngestionResult{SourcePath: filename}
	if strings.TrimSpace(ownerID) == "" {
		return out, common.InvalidInputf("owner is required")
	}
	ext, err := reports.ValidateUpload(filename, size)
	if err != nil {
		return out, err
	}
	out.FileExt = ext

	if err := os.MkdirAll(i.UploadDir, 0o755); err != nil {
		return out, fmt.Errorf("create upload dir: %w", err)
	}
	tmp, err := os.CreateTemp(i.UploadDir, ".upload-*")
	if err != nil {
		return out, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tmpName)
		}
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return out, fmt.Errorf("store upload: %w", err)
	}
	out.HashHex = hex.EncodeToString(h.Sum(nil))
	out.SizeKB = entity.SizeKB(n)

	if existing, err := i.Reports.FindByHash(ctx, ownerID, out.HashHex); err == nil {
		if existing.Status == constants.ReportStatusFailed {
			return i.retry(ctx, out, existing, tmpName)
		}
		return i.dedup(out, existing), nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return out, err
	}

	id := uuid.New()
	dest := filepath.Join(i.UploadDir, id.String()+"."+ext)
	if err := os.Rename(tmpName, dest); err != nil {
		return out, fmt.Errorf("move upload: %w", err)
	}
	keep = true

	rep := &entity.Report{
		ID:               id,
		OwnerID:          ownerID,
		OriginalFilename: filename,
		StoragePath:      dest,
		FileExt:          ext,
		FileSizeKB:       out.SizeKB,
		ContentHash:      out.HashHex,
	}
	if err := i.Reports.Create(ctx, rep); err != nil {
		_ = os.Remove(dest)
		if errors.Is(err, common.ErrDuplicate) {
			// lost a race with a concurrent upload of the same bytes
			if existing, ferr := i.Reports.FindByHash(ctx, ownerID, out.HashHex); ferr == nil {
				return i.dedup(out, existing), nil
			}
		}
		return out, err
	}

	out.ReportID = rep.ID.String()
	out.UploadedAt = rep.UploadedAt
	i.Logger.Info("ingest.file.ok",
		zap.String("owner_id", ownerID),
		zap.String("report_id", out.ReportID),
		zap.String("filename", filename),
		zap.Float64("size_kb", out.SizeKB),
	)
	return out, nil
}

func (i *FSIngestor) dedup(out IngestionResult, existing *entity.Report) IngestionResult {
	out.ReportID = existing.ID.String()
	out.Deduplicated = true
	out.UploadedAt = existing.UploadedAt
	i.Logger.Info("ingest.file.duplicate",
		zap.String("owner_id", existing.OwnerID),
		zap.String("report_id", out.ReportID),
		zap.String("hash", out.HashHex),
	)
	return out
}

// retry puts a previously failed report back in the queue with the freshly
// uploaded bytes, so the caller processes it again.
func (i *FSIngestor) retry(ctx context.Context, out IngestionResult, existing *entity.Report, tmpName string) (IngestionResult, error) {
	if existing.StoragePath != "" {
		if err := os.Rename(tmpName, existing.StoragePath); err != nil {
			return out, fmt.Errorf("replace stored upload: %w", err)
		}
	}
	if err := i.Reports.UpdateStatus(ctx, existing.ID, constants.ReportStatusQueued, ""); err != nil {
		return out, err
	}
	out.ReportID = existing.ID.String()
	out.UploadedAt = existing.UploadedAt
	i.Logger.Info("ingest.file.retry",
		zap.String("owner_id", existing.OwnerID),
		zap.String("report_id", out.ReportID),
		zap.String("previous_error", existing.ErrorMessage),
	)
	return out, nil
}
