package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/medreports/internal/entity"
)

// ErrQueueClosed is returned by Enqueue once Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job asks a worker to process one stored report.
type Job struct {
	ReportID    uuid.UUID
	OwnerID     string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// ReportProcessor is what a worker calls for every job.
type ReportProcessor interface {
	ProcessReport(ctx context.Context, id uuid.UUID) (*entity.Report, error)
}
