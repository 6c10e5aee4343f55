// Package reports holds the per-user views over stored reports: history,
// dashboard and retention.
package reports

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/common"
	"github.com/joseph-ayodele/medreports/internal/compare"
	"github.com/joseph-ayodele/medreports/internal/entity"
	"github.com/joseph-ayodele/medreports/internal/extract"
	"github.com/joseph-ayodele/medreports/internal/repository"
)

const (
	// DefaultKeep is how many reports per owner survive cleanup and show in history.
	DefaultKeep = 6

	HistoryDateLayout = "02 Jan 2006, 03:04 PM"
	TrendDateLayout   = "02 Jan"

	processingConclusion = "Processing..."
	noReportsMessage     = "No reports uploaded yet"
)

type Options struct {
	Keep     int
	Location *time.Location // display zone for dates; nil means time.Local
}

// Service handles report business logic.
type Service struct {
	repo   repository.ReportRepository
	logger *zap.Logger
	keep   int
	loc    *time.Location
}

func NewService(repo repository.ReportRepository, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Keep <= 0 {
		opts.Keep = DefaultKeep
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{repo: repo, logger: logger, keep: opts.Keep, loc: opts.Location}
}

// ValidateUpload checks name, extension and size of an incoming file and
// returns the normalized extension.
func ValidateUpload(filename string, size int64) (string, error) {
	ext := ""
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = constants.NormalizeExt(filename[i+1:])
	}
	v := common.NewValidator().
		Field("filename", filename, common.Required).
		Field("extension", ext, common.OneOf("pdf", "jpg", "jpeg", "png")).
		Field("size", size, common.SizeBetween(1, constants.MaxUploadBytes))
	if err := v.Error(); err != nil {
		return "", err
	}
	return ext, nil
}

// DeriveStatus summarises a comparison table: no table is Unknown, no abnormal
// entry is Normal, up to two is Attention, more is Critical.
func DeriveStatus(comparison []compare.Entry) constants.HealthStatus {
	if len(comparison) == 0 {
		return constants.HealthUnknown
	}
	switch n := compare.CountAbnormal(comparison); {
	case n == 0:
		return constants.HealthNormal
	case n <= 2:
		return constants.HealthAttention
	default:
		return constants.HealthCritical
	}
}

// Get returns the owner's report; reports of other owners are reported as not found.
func (s *Service) Get(ctx context.Context, ownerID string, id uuid.UUID) (*entity.Report, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != ownerID {
		return nil, common.NewAppError("NOT_FOUND", "report not found", common.ErrNotFound)
	}
	return r, nil
}

type HistoryItem struct {
	ID              uuid.UUID              `json:"id"`
	Filename        string                 `json:"filename"`
	UploadedAt      string                 `json:"uploaded_at"`
	FileSizeKB      float64                `json:"file_size_kb"`
	FinalConclusion string                 `json:"final_conclusion"`
	Status          constants.HealthStatus `json:"status"`
	ReportStatus    constants.ReportStatus `json:"report_status"`
	BMI             *float64               `json:"bmi"`
	RespiratoryRate *float64               `json:"respiratory_rate"`
}

// History lists the owner's latest reports, newest first.
func (s *Service) History(ctx context.Context, ownerID string) ([]HistoryItem, error) {
	recs, err := s.repo.ListByOwner(ctx, ownerID, s.keep)
	if err != nil {
		s.logger.Error("failed to fetch report history", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}
	out := make([]HistoryItem, 0, len(recs))
	for _, r := range recs {
		conclusion := r.Conclusion
		if conclusion == "" {
			conclusion = processingConclusion
		}
		out = append(out, HistoryItem{
			ID:              r.ID,
			Filename:        r.OriginalFilename,
			UploadedAt:      r.UploadedAt.In(s.loc).Format(HistoryDateLayout),
			FileSizeKB:      r.FileSizeKB,
			FinalConclusion: conclusion,
			Status:          DeriveStatus(r.Comparison),
			ReportStatus:    r.Status,
			BMI:             r.BMI,
			RespiratoryRate: r.RespiratoryRate,
		})
	}
	return out, nil
}

type LatestVitals struct {
	BP              *string           `json:"bp"`
	BPStatus        *constants.Status `json:"bp_status"`
	BMI             *float64          `json:"bmi"`
	RespiratoryRate *float64          `json:"respiratory_rate"`
	HeartRate       *string           `json:"heart_rate"`
	Temperature     *string           `json:"temperature"`
	SpO2            *string           `json:"spo2"`
	RawVitals       extract.Vitals    `json:"raw_vitals"`
}

type TrendPoint struct {
	Value    float64   `json:"value"`
	Date     string    `json:"date"`
	ReportID uuid.UUID `json:"report_id"`
}

type Dashboard struct {
	LatestVitals     *LatestVitals `json:"latest_vitals"`
	BMITrend         []TrendPoint  `json:"bmi_trend"`
	HeartRateTrend   []TrendPoint  `json:"heart_rate_trend"`
	TotalReports     int           `json:"total_reports"`
	LatestReportDate string        `json:"latest_report_date,omitempty"`
	LatestConclusion string        `json:"latest_conclusion,omitempty"`
	Message          string        `json:"message,omitempty"`
}

// Dashboard builds the latest vitals and trends from the owner's recent reports.
func (s *Service) Dashboard(ctx context.Context, ownerID string) (Dashboard, error) {
	d := Dashboard{BMITrend: []TrendPoint{}, HeartRateTrend: []TrendPoint{}}

	recs, err := s.repo.ListByOwner(ctx, ownerID, s.keep)
	if err != nil {
		s.logger.Error("dashboard query failed", zap.String("owner_id", ownerID), zap.Error(err))
		return d, err
	}
	if len(recs) == 0 {
		d.Message = noReportsMessage
		return d, nil
	}

	latest := recs[0]
	lv := &LatestVitals{
		BMI:             latest.BMI,
		RespiratoryRate: latest.RespiratoryRate,
		HeartRate:       vitalPtr(latest.Vitals, constants.VitalHeartRate),
		Temperature:     vitalPtr(latest.Vitals, constants.VitalBodyTemperature),
		SpO2:            vitalPtr(latest.Vitals, constants.VitalSpO2),
		RawVitals:       latest.Vitals,
	}
	for _, e := range latest.Comparison {
		if strings.Contains(strings.ToLower(e.Vital), "blood pressure") {
			bp, st := e.PatientValue.String(), e.Status
			lv.BP, lv.BPStatus = &bp, &st
			break
		}
	}
	d.LatestVitals = lv

	// trends run oldest to newest
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		date := r.UploadedAt.In(s.loc).Format(TrendDateLayout)
		if r.BMI != nil {
			d.BMITrend = append(d.BMITrend, TrendPoint{Value: *r.BMI, Date: date, ReportID: r.ID})
		}
		if raw, ok := r.Vitals.Get(constants.VitalHeartRate); ok && raw != "" {
			if hr, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
				d.HeartRateTrend = append(d.HeartRateTrend, TrendPoint{Value: hr, Date: date, ReportID: r.ID})
			}
		}
	}

	if d.TotalReports, err = s.repo.CountByOwner(ctx, ownerID); err != nil {
		return d, err
	}
	d.LatestReportDate = latest.UploadedAt.In(s.loc).Format(HistoryDateLayout)
	d.LatestConclusion = latest.Conclusion
	return d, nil
}

func vitalPtr(v extract.Vitals, key string) *string {
	if raw, ok := v.Get(key); ok && raw != "" {
		return &raw
	}
	return nil
}

// Cleanup deletes all but the owner's newest reports together with their stored files.
func (s *Service) Cleanup(ctx context.Context, ownerID string) error {
	deleted, err := s.repo.Prune(ctx, ownerID, s.keep)
	if err != nil {
		return err
	}
	var errs []error
	for _, r := range deleted {
		if r.StoragePath == "" {
			continue
		}
		if err := os.Remove(r.StoragePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove stored report file",
				zap.String("report_id", r.ID.String()), zap.String("path", r.StoragePath), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(deleted) > 0 {
		s.logger.Info("cleaned up old reports", zap.String("owner_id", ownerID), zap.Int("deleted", len(deleted)))
	}
	return errors.Join(errs...)
}

// All returns every stored report of the owner, newest first.
func (s *Service) All(ctx context.Context, ownerID string) ([]*entity.Report, error) {
	return s.repo.ListByOwner(ctx, ownerID, 0)
}
