package async

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProcessorQueue is a bounded worker pool in front of a ReportProcessor.
type ProcessorQueue struct {
	proc    ReportProcessor
	logger  *zap.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewProcessorQueue starts the workers immediately.
func NewProcessorQueue(proc ReportProcessor, logger *zap.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
	})
}

func (q *ProcessorQueue) work(workerID int) {
	defer q.wg.Done()
	log := q.logger.With(zap.Int("worker_id", workerID))
	log.Debug("queue.worker.started")

	for job := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		rep, err := q.proc.ProcessReport(ctx, job.ReportID)
		cancel()

		fields := []zap.Field{
			zap.String("report_id", job.ReportID.String()),
			zap.Duration("waited", time.Since(job.SubmittedAt)),
		}
		if job.TraceID != "" {
			fields = append(fields, zap.String("trace_id", job.TraceID))
		}
		if err != nil {
			log.Error("queue.job.failed", append(fields, zap.Error(err))...)
			continue
		}
		if rep != nil {
			fields = append(fields, zap.String("status", string(rep.Status)))
		}
		log.Info("queue.job.ok", fields...)
	}

	log.Debug("queue.worker.stopped")
}

// Enqueue blocks while the buffer is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", zap.String("report_id", job.ReportID.String()))
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueue.ok", zap.String("report_id", job.ReportID.String()))
		return nil
	default:
	}

	q.logger.Warn("queue.full", zap.String("report_id", job.ReportID.String()), zap.Int("capacity", cap(q.ch)))
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for in-flight ones to drain.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.ok")
	}
}
