package reports

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/common"
	"github.com/joseph-ayodele/medreports/internal/compare"
	"github.com/joseph-ayodele/medreports/internal/entity"
	"github.com/joseph-ayodele/medreports/internal/extract"
	"github.com/joseph-ayodele/medreports/internal/repository"
)

func newTestService(t *testing.T) (*Service, repository.ReportRepository) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := repository.Config{Driver: repository.DriverSQLite, DSN: filepath.Join(t.TempDir(), "r.db")}
	if err := repository.MigrateUp(cfg, logger); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	store, err := repository.OpenStore(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(store.Close)
	return NewService(store.Reports, logger, Options{Location: time.UTC}), store.Reports
}

func entry(name string, st constants.Status) compare.Entry {
	return compare.Entry{Vital: name, PatientValue: compare.TextValue("x"), NormalRange: "y", Status: st}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name    string
		entries []compare.Entry
		want    constants.HealthStatus
	}{
		{"none", nil, constants.HealthUnknown},
		{"all normal", []compare.Entry{entry("A", constants.StatusNormal)}, constants.HealthNormal},
		{"two abnormal", []compare.Entry{entry("A", constants.StatusHigh), entry("B", constants.StatusLow), entry("C", constants.StatusNormal)}, constants.HealthAttention},
		{"three abnormal", []compare.Entry{entry("A", constants.StatusHigh), entry("B", constants.StatusLow), entry("C", constants.StatusAbnormal)}, constants.HealthCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.entries); got != tt.want {
				t.Errorf("DeriveStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
		wantExt  string
		wantErr  bool
	}{
		{"pdf", "Report.PDF", 1024, "pdf", false},
		{"jpeg", "scan.jpeg", 10 << 20, "jpeg", false},
		{"too large", "scan.png", 10<<20 + 1, "", true},
		{"empty", "scan.png", 0, "", true},
		{"wrong type", "notes.docx", 100, "", true},
		{"no name", "", 100, "", true},
		{"no extension", "report", 100, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := ValidateUpload(tt.filename, tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateUpload err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, common.ErrValidation) {
				t.Errorf("error should wrap ErrValidation: %v", err)
			}
			if ext != tt.wantExt {
				t.Errorf("ext = %q, want %q", ext, tt.wantExt)
			}
		})
	}
}

func seed(t *testing.T, repo repository.ReportRepository, owner string, at time.Time, hr string, bmi *float64, comparison []compare.Entry, conclusion string) *entity.Report {
	t.Helper()
	ctx := context.Background()
	r := &entity.Report{OwnerID: owner, OriginalFilename: "r.pdf", FileExt: "pdf", FileSizeKB: 1.5, UploadedAt: at}
	if err := repo.Create(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveText(ctx, r.ID, "text"); err != nil {
		t.Fatal(err)
	}
	var v extract.Vitals
	if hr != "" {
		v.Set(constants.VitalHeartRate, hr)
	}
	a := entity.Analysis{Vitals: v, Comparison: comparison, Conclusion: conclusion, BMI: bmi}
	if err := repo.SaveAnalysis(ctx, r.ID, a, at); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	queued := &entity.Report{OwnerID: "alice", OriginalFilename: "pending.png", FileExt: "png",
		UploadedAt: time.Date(2024, 6, 2, 14, 5, 0, 0, time.UTC)}
	if err := repo.Create(ctx, queued); err != nil {
		t.Fatal(err)
	}
	seed(t, repo, "alice", time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC), "72", nil,
		[]compare.Entry{entry("Heart Rate", constants.StatusNormal)}, "All good")

	items, err := svc.History(ctx, "alice")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d", len(items))
	}
	if items[0].Filename != "pending.png" || items[0].FinalConclusion != "Processing..." || items[0].Status != constants.HealthUnknown {
		t.Errorf("pending item = %+v", items[0])
	}
	if items[0].UploadedAt != "02 Jun 2024, 02:05 PM" {
		t.Errorf("uploaded_at = %q", items[0].UploadedAt)
	}
	if items[1].Status != constants.HealthNormal || items[1].FinalConclusion != "All good" {
		t.Errorf("analyzed item = %+v", items[1])
	}

	if other, _ := svc.History(ctx, "bob"); len(other) != 0 {
		t.Errorf("bob sees %d reports", len(other))
	}
}

func TestDashboard_Empty(t *testing.T) {
	svc, _ := newTestService(t)
	d, err := svc.Dashboard(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.LatestVitals != nil || d.TotalReports != 0 || d.Message != "No reports uploaded yet" {
		t.Errorf("dashboard = %+v", d)
	}
	if d.BMITrend == nil || d.HeartRateTrend == nil {
		t.Error("trends should be empty slices, not nil")
	}
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	bmi1, bmi2 := 24.1, 25.3
	first := seed(t, repo, "alice", time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), "80", &bmi1, nil, "")
	seed(t, repo, "alice", time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC), "n/a", nil, nil, "")
	bp := compare.Entry{Vital: "Blood Pressure", PatientValue: compare.TextValue("140/95"), NormalRange: "≤120 / ≤80", Status: constants.StatusHigh}
	last := seed(t, repo, "alice", time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC), "110", &bmi2,
		[]compare.Entry{entry("Heart Rate", constants.StatusHigh), bp}, "Needs attention")

	d, err := svc.Dashboard(ctx, "alice")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	lv := d.LatestVitals
	if lv == nil || lv.BP == nil || *lv.BP != "140/95" || *lv.BPStatus != constants.StatusHigh {
		t.Fatalf("latest vitals = %+v", lv)
	}
	if lv.HeartRate == nil || *lv.HeartRate != "110" || lv.BMI == nil || *lv.BMI != 25.3 {
		t.Errorf("latest vitals = %+v", lv)
	}
	if len(d.BMITrend) != 2 || d.BMITrend[0].ReportID != first.ID || d.BMITrend[1].ReportID != last.ID {
		t.Errorf("bmi trend = %+v", d.BMITrend)
	}
	// "n/a" is skipped
	if len(d.HeartRateTrend) != 2 || d.HeartRateTrend[0].Value != 80 || d.HeartRateTrend[1].Date != "05 Jun" {
		t.Errorf("heart rate trend = %+v", d.HeartRateTrend)
	}
	if d.TotalReports != 3 || d.LatestConclusion != "Needs attention" || d.LatestReportDate != "05 Jun 2024, 09:00 AM" {
		t.Errorf("dashboard = %+v", d)
	}
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	dir := t.TempDir()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var paths []string
	for i := 0; i < 8; i++ {
		p := filepath.Join(dir, uuid.NewString()+".pdf")
		if err := os.WriteFile(p, []byte("%PDF"), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
		r := &entity.Report{OwnerID: "alice", OriginalFilename: "r.pdf", FileExt: "pdf", StoragePath: p,
			ContentHash: uuid.NewString(), UploadedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.Cleanup(ctx, "alice"); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n, _ := repo.CountByOwner(ctx, "alice"); n != DefaultKeep {
		t.Errorf("count = %d, want %d", n, DefaultKeep)
	}
	for i, p := range paths {
		_, err := os.Stat(p)
		if i < 2 && !os.IsNotExist(err) {
			t.Errorf("old file %d still present", i)
		}
		if i >= 2 && err != nil {
			t.Errorf("recent file %d removed: %v", i, err)
		}
	}
}

func TestGet_OwnerScoped(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	r := &entity.Report{OwnerID: "alice", OriginalFilename: "r.pdf", FileExt: "pdf"}
	if err := repo.Create(ctx, r); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, "alice", r.ID); err != nil {
		t.Errorf("owner Get: %v", err)
	}
	if _, err := svc.Get(ctx, "mallory", r.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("foreign Get = %v, want ErrNotFound", err)
	}
}
