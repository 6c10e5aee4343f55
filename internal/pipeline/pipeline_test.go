package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/entity"
	"github.com/joseph-ayodele/medreports/internal/extract"
	"github.com/joseph-ayodele/medreports/internal/ranges"
	"github.com/joseph-ayodele/medreports/internal/repository"
)

const scenarioText = "Heart Rate: 105 bpm\nBlood Pressure 140/95\nGender: Female\nHemoglobin 11"

func TestAnalyze_Scenario(t *testing.T) {
	a := NewAnalyzer(nil).Analyze(scenarioText)

	want := map[string]string{"heart_rate": "105", "blood_pressure": "140/95"}
	got := a.Vitals.Map()
	if len(got) != len(want) || got["heart_rate"] != "105" || got["blood_pressure"] != "140/95" {
		t.Fatalf("vitals = %v, want %v", got, want)
	}
	if a.PatientDetails[constants.PatientGender] != "Female" {
		t.Errorf("gender = %q", a.PatientDetails[constants.PatientGender])
	}
	if len(a.Comparison) != 2 {
		t.Fatalf("comparison = %+v", a.Comparison)
	}
	for _, e := range a.Comparison {
		if e.Status != constants.StatusHigh {
			t.Errorf("%s status = %s, want High", e.Vital, e.Status)
		}
	}
	if !strings.Contains(a.Conclusion, "Blood Pressure, Heart Rate") {
		t.Errorf("conclusion = %q", a.Conclusion)
	}
	if len(a.Observations) != 2 {
		t.Errorf("observations = %v", a.Observations)
	}
	if a.BMI != nil || a.RespiratoryRate != nil {
		t.Errorf("bmi = %v rr = %v, want nil", a.BMI, a.RespiratoryRate)
	}
}

func TestAnalyze_DerivedNumbers(t *testing.T) {
	a := NewAnalyzer(nil).Analyze("BMI: 23.46\r\n\r\nRespiratory Rate: 18 /min")
	if a.BMI == nil || *a.BMI != 23.5 {
		t.Errorf("bmi = %v, want 23.5", a.BMI)
	}
	if a.RespiratoryRate == nil || *a.RespiratoryRate != 18 {
		t.Errorf("respiratory rate = %v, want 18", a.RespiratoryRate)
	}
	if a.Text != "BMI: 23.46\nRespiratory Rate: 18 /min" {
		t.Errorf("text = %q", a.Text)
	}
}

func TestAnalyze_QualitativeAndOverrides(t *testing.T) {
	overrides, err := ranges.Parse([]byte("ranges:\n  heart_rate:\n    kind: numeric\n    min: 50\n    max: 110\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	a := NewAnalyzer(ranges.Default().With(overrides)).Analyze("Heart Rate: 105 bpm\nVDRL: Reactive")

	byName := map[string]constants.Status{}
	for _, e := range a.Comparison {
		byName[e.Vital] = e.Status
	}
	if byName["Heart Rate"] != constants.StatusNormal {
		t.Errorf("heart rate with override = %s, want Normal", byName["Heart Rate"])
	}
	if byName["Vdrl"] != constants.StatusAbnormal {
		t.Errorf("vdrl = %s, want Abnormal (entries %+v)", byName["Vdrl"], a.Comparison)
	}
}

func TestAnalyze_WithoutQualitative(t *testing.T) {
	a := NewAnalyzer(nil).
		WithFieldExtractor(extract.Rules{SkipQualitative: true}).
		Analyze("Heart Rate: 72 bpm\nVDRL: Reactive")
	if got := a.Vitals.Map(); len(got) != 1 || got["heart_rate"] != "72" {
		t.Errorf("vitals = %v, want heart rate only", got)
	}
	if len(a.Observations) != 0 {
		t.Errorf("observations = %v", a.Observations)
	}
}

func TestAnalyze_Empty(t *testing.T) {
	a := NewAnalyzer(nil).Analyze("")
	if a.Vitals.Len() != 0 || len(a.Comparison) != 0 || len(a.Observations) != 0 {
		t.Errorf("analysis = %+v", a)
	}
	if a.Conclusion == "" {
		t.Error("conclusion should fall back to the no-data text")
	}
	if a.PatientDetails[constants.PatientID] != constants.NotAvailable {
		t.Errorf("patient id = %q", a.PatientDetails[constants.PatientID])
	}
}

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(context.Context, string) (extract.TextExtractionResult, error) {
	return extract.TextExtractionResult{Text: f.text, Method: "image-ocr", Pages: 1}, f.err
}

type countingCleaner struct {
	owners []string
}

func (c *countingCleaner) Cleanup(_ context.Context, owner string) error {
	c.owners = append(c.owners, owner)
	return nil
}

func newTestRepo(t *testing.T) repository.ReportRepository {
	t.Helper()
	cfg := repository.Config{Driver: repository.DriverSQLite, DSN: filepath.Join(t.TempDir(), "p.db")}
	logger := zaptest.NewLogger(t)
	if err := repository.MigrateUp(cfg, logger); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	s, err := repository.OpenStore(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(s.Close)
	return s.Reports
}

func newProcessor(t *testing.T, repo repository.ReportRepository, tx extract.TextExtractor, cleaner Cleaner) *Processor {
	logger := zaptest.NewLogger(t)
	analyze := NewAnalyzeStage(repo, nil, logger)
	analyze.Now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return NewProcessor(logger, NewTextStage(repo, tx, logger), analyze, cleaner)
}

func TestProcessReport(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	rep := &entity.Report{OwnerID: "alice", OriginalFilename: "scan.png", FileExt: "png", StoragePath: "/x/scan.png"}
	if err := repo.Create(ctx, rep); err != nil {
		t.Fatal(err)
	}

	cleaner := &countingCleaner{}
	got, err := newProcessor(t, repo, fakeExtractor{text: scenarioText}, cleaner).ProcessReport(ctx, rep.ID)
	if err != nil {
		t.Fatalf("ProcessReport: %v", err)
	}
	if got.Status != constants.ReportStatusAnalyzed {
		t.Errorf("status = %s", got.Status)
	}
	if got.ExtractedText != scenarioText || len(got.Comparison) != 2 {
		t.Errorf("report = %+v", got)
	}
	if got.ProcessedAt == nil || got.ProcessedAt.Year() != 2024 {
		t.Errorf("processed_at = %v", got.ProcessedAt)
	}
	if len(cleaner.owners) != 1 || cleaner.owners[0] != "alice" {
		t.Errorf("cleanup calls = %v", cleaner.owners)
	}
}

func TestProcessReport_ExtractionFailure(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	rep := &entity.Report{OwnerID: "alice", OriginalFilename: "scan.pdf", FileExt: "pdf", StoragePath: "/missing.pdf"}
	if err := repo.Create(ctx, rep); err != nil {
		t.Fatal(err)
	}

	cleaner := &countingCleaner{}
	got, err := newProcessor(t, repo, fakeExtractor{err: errors.New("open pdf: no such file")}, cleaner).ProcessReport(ctx, rep.ID)
	if err == nil {
		t.Fatal("expected error")
	}
	if got == nil || got.Status != constants.ReportStatusFailed || got.ErrorMessage != "open pdf: no such file" {
		t.Errorf("returned report = %+v, want FAILED with the extraction error", got)
	}
	stored, _ := repo.Get(ctx, rep.ID)
	if stored.Status != constants.ReportStatusFailed || !strings.Contains(stored.ErrorMessage, "no such file") {
		t.Errorf("stored = %s %q", stored.Status, stored.ErrorMessage)
	}
	if len(cleaner.owners) != 0 {
		t.Error("cleanup should not run for failed reports")
	}
}

func TestProcessReport_UnsupportedFormat(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	rep := &entity.Report{OwnerID: "alice", OriginalFilename: "notes.txt", FileExt: "txt", StoragePath: "/x/notes.txt"}
	if err := repo.Create(ctx, rep); err != nil {
		t.Fatal(err)
	}

	got, err := newProcessor(t, repo, fakeExtractor{text: scenarioText}, nil).ProcessReport(ctx, rep.ID)
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if got.Status != constants.ReportStatusFailed || !strings.Contains(got.ErrorMessage, "unsupported format") {
		t.Errorf("returned = %s %q", got.Status, got.ErrorMessage)
	}
	stored, _ := repo.Get(ctx, rep.ID)
	if stored.Status != got.Status || stored.ErrorMessage != got.ErrorMessage {
		t.Errorf("stored = %s %q, returned = %s %q", stored.Status, stored.ErrorMessage, got.Status, got.ErrorMessage)
	}
}

func TestProcessReport_UnknownReport(t *testing.T) {
	_, err := newProcessor(t, newTestRepo(t), fakeExtractor{}, nil).ProcessReport(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected error for unknown report")
	}
}

func TestAnalyzeStage_RequiresText(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	rep := &entity.Report{OwnerID: "alice", OriginalFilename: "a.png", FileExt: "png"}
	if err := repo.Create(ctx, rep); err != nil {
		t.Fatal(err)
	}
	if _, err := NewAnalyzeStage(repo, nil, nil).Run(ctx, rep.ID); err == nil {
		t.Error("analyzing a QUEUED report should fail")
	}
}
