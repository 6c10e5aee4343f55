package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/async"
	"github.com/joseph-ayodele/medreports/internal/common"
	"github.com/joseph-ayodele/medreports/internal/repository"
)

func newStore(t *testing.T) *repository.Store {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := repository.Config{Driver: repository.DriverSQLite, DSN: filepath.Join(t.TempDir(), "ingest.db")}
	if err := repository.MigrateUp(cfg, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store, err := repository.OpenStore(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []async.Job
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Shutdown(context.Context) {}

func (q *fakeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func TestIngestPath_StoresAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uploads := filepath.Join(t.TempDir(), "uploads")
	ing := NewFSIngestor(store.Reports, uploads, zaptest.NewLogger(t))

	src := writeFile(t, filepath.Join(t.TempDir(), "Lab Report.PDF"), "%PDF-1.4 fake")

	first, err := ing.IngestPath(ctx, "alice", src)
	if err != nil {
		t.Fatalf("IngestPath: %v", err)
	}
	if first.Deduplicated || first.ReportID == "" || first.FileExt != "pdf" || len(first.HashHex) != 64 {
		t.Fatalf("first = %+v", first)
	}

	rep, err := store.Reports.FindByHash(ctx, "alice", first.HashHex)
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if rep.Status != constants.ReportStatusQueued || rep.OriginalFilename != "Lab Report.PDF" {
		t.Errorf("stored report = %+v", rep)
	}
	if filepath.Dir(rep.StoragePath) != uploads || filepath.Ext(rep.StoragePath) != ".pdf" {
		t.Errorf("storage path = %q", rep.StoragePath)
	}
	if b, err := os.ReadFile(rep.StoragePath); err != nil || string(b) != "%PDF-1.4 fake" {
		t.Errorf("stored bytes = %q, %v", b, err)
	}

	second, err := ing.IngestPath(ctx, "alice", src)
	if err != nil {
		t.Fatalf("IngestPath again: %v", err)
	}
	if !second.Deduplicated || second.ReportID != first.ReportID {
		t.Errorf("second = %+v", second)
	}

	// another owner gets their own copy
	other, err := ing.IngestPath(ctx, "bob", src)
	if err != nil || other.Deduplicated {
		t.Errorf("other owner = %+v, %v", other, err)
	}

	entries, _ := os.ReadDir(uploads)
	if len(entries) != 2 {
		t.Errorf("upload dir has %d entries, want 2", len(entries))
	}
}

func TestIngestPath_RequeuesFailedDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uploads := filepath.Join(t.TempDir(), "uploads")
	ing := NewFSIngestor(store.Reports, uploads, zaptest.NewLogger(t))
	src := writeFile(t, filepath.Join(t.TempDir(), "scan.png"), "png bytes")

	first, err := ing.IngestPath(ctx, "alice", src)
	if err != nil {
		t.Fatalf("IngestPath: %v", err)
	}
	rep, err := store.Reports.FindByHash(ctx, "alice", first.HashHex)
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if err := store.Reports.UpdateStatus(ctx, rep.ID, constants.ReportStatusFailed, "ocr: exit status 1"); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(rep.StoragePath); err != nil {
		t.Fatal(err)
	}

	again, err := ing.IngestPath(ctx, "alice", src)
	if err != nil {
		t.Fatalf("IngestPath again: %v", err)
	}
	if again.Deduplicated || again.ReportID != first.ReportID {
		t.Errorf("again = %+v, want the failed report re-queued", again)
	}
	stored, err := store.Reports.Get(ctx, rep.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != constants.ReportStatusQueued || stored.ErrorMessage != "" {
		t.Errorf("stored = %s %q", stored.Status, stored.ErrorMessage)
	}
	if b, err := os.ReadFile(stored.StoragePath); err != nil || string(b) != "png bytes" {
		t.Errorf("stored bytes = %q, %v", b, err)
	}
	entries, _ := os.ReadDir(uploads)
	if len(entries) != 1 {
		t.Errorf("upload dir has %d entries, want 1", len(entries))
	}
}

func TestIngestPath_Rejects(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ing := NewFSIngestor(store.Reports, t.TempDir(), zaptest.NewLogger(t))
	dir := t.TempDir()

	cases := []struct {
		name  string
		owner string
		path  string
	}{
		{"unsupported", "alice", writeFile(t, filepath.Join(dir, "notes.txt"), "x")},
		{"empty", "alice", writeFile(t, filepath.Join(dir, "empty.png"), "")},
		{"no owner", "", writeFile(t, filepath.Join(dir, "scan.png"), "x")},
		{"directory", "alice", dir},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ing.IngestPath(ctx, tc.owner, tc.path)
			if err == nil {
				t.Fatal("expected error")
			}
			if common.HTTPStatus(err) != 400 {
				t.Errorf("status = %d for %v", common.HTTPStatus(err), err)
			}
		})
	}

	if _, err := ing.IngestPath(ctx, "alice", filepath.Join(dir, "missing.pdf")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestService_IngestDirectory(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ing := NewFSIngestor(store.Reports, t.TempDir(), zaptest.NewLogger(t))
	q := &fakeQueue{}
	svc := NewService(ing, q, zaptest.NewLogger(t))

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "report a")
	writeFile(t, filepath.Join(root, "nested", "b.jpg"), "report b")
	writeFile(t, filepath.Join(root, "nested", "copy.png"), "report a")
	writeFile(t, filepath.Join(root, "readme.txt"), "ignored")
	writeFile(t, filepath.Join(root, ".hidden", "c.pdf"), "hidden")
	writeFile(t, filepath.Join(root, "empty.pdf"), "")

	results, stats, err := svc.IngestDirectory(ctx, "alice", root)
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}
	if stats.Matched != 4 || stats.Succeeded != 3 || stats.Deduplicated != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(results) != 4 {
		t.Errorf("results = %d", len(results))
	}
	if q.len() != 2 {
		t.Errorf("enqueued %d jobs, want 2", q.len())
	}
	n, _ := store.Reports.CountByOwner(ctx, "alice")
	if n != 2 {
		t.Errorf("stored %d reports, want 2", n)
	}
}

func TestService_IngestFileEnqueueFailure(t *testing.T) {
	store := newStore(t)
	ing := NewFSIngestor(store.Reports, t.TempDir(), zaptest.NewLogger(t))
	svc := NewService(ing, &fakeQueue{err: async.ErrQueueClosed}, zaptest.NewLogger(t))

	src := writeFile(t, filepath.Join(t.TempDir(), "r.png"), "img")
	if _, err := svc.IngestFile(context.Background(), "alice", src); !errors.Is(err, async.ErrQueueClosed) {
		t.Fatalf("err = %v", err)
	}
	if _, err := svc.IngestFile(context.Background(), "alice", "  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	existing := writeFile(t, filepath.Join(root, "old.pdf"), "old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
		Logger:      zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	next := func() string {
		t.Helper()
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watcher event")
			return ""
		}
	}

	if got := next(); got != existing {
		t.Fatalf("initial scan = %q, want %q", got, existing)
	}

	writeFile(t, filepath.Join(root, "skip.txt"), "x")
	created := writeFile(t, filepath.Join(root, "new.png"), "new")
	if got := next(); got != created {
		t.Fatalf("event = %q, want %q", got, created)
	}

	cancel()
	for range events {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{}); err == nil {
		t.Fatal("expected error")
	}
}
