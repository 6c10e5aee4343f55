// Package ingest stores incoming report files and records them for processing.
package ingest

import (
	"context"
	"io"
	"time"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	ReportID     string
	Deduplicated bool
	HashHex      string
	FileExt      string
	SizeKB       float64
	UploadedAt   time.Time
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the service depends on.
type Ingestor interface {
	// IngestPath stores a single file from disk.
	IngestPath(ctx context.Context, ownerID, path string) (IngestionResult, error)
	// IngestReader stores an uploaded file under its original name.
	IngestReader(ctx context.Context, ownerID, filename string, size int64, r io.Reader) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, ownerID, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
