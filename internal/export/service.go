package export

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/compare"
	"github.com/joseph-ayodele/medreports/internal/entity"
	"github.com/joseph-ayodele/medreports/internal/repository"
)

const (
	SummarySheet = "Summary"
	HistorySheet = "Reports"

	summaryTitle   = "Medical Report Summary"
	noObservations = "No significant observations noted."
	noConclusion   = "No conclusion could be generated."
	Disclaimer     = "This summary is generated automatically and is not a medical diagnosis. " +
		"Please consult a qualified healthcare professional for clinical advice."
)

// status fills for the vitals table
var statusFill = map[constants.Status]string{
	constants.StatusHigh:   "F08080",
	constants.StatusLow:    "FAFAD2",
	constants.StatusNormal: "90EE90",
}

const defaultFill = "F5F5F5"

// Service produces XLSX bytes for a single report summary or an owner's history.
type Service struct {
	repo   repository.ReportRepository
	logger *zap.Logger
}

func NewService(repo repository.ReportRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// newWorkbook returns a file whose only sheet is named sheet.
func newWorkbook(sheet string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// SummaryXLSX renders the patient-facing summary of one analyzed report.
func SummaryXLSX(r *entity.Report) ([]byte, error) {
	f, err := newWorkbook(SummarySheet)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	const sheet = SummarySheet

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	title, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	if err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D3D3D3"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    gridBorder(),
	})
	if err != nil {
		return nil, err
	}
	fills := map[string]int{}
	fillStyle := func(color string) (int, error) {
		if id, ok := fills[color]; ok {
			return id, nil
		}
		id, err := f.NewStyle(&excelize.Style{
			Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
			Border: gridBorder(),
		})
		fills[color] = id
		return id, err
	}

	row := 1
	_ = f.SetCellValue(sheet, cell(1, row), summaryTitle)
	_ = f.SetCellStyle(sheet, cell(1, row), cell(1, row), title)
	row += 2

	section := func(name string) {
		_ = f.SetCellValue(sheet, cell(1, row), name)
		_ = f.SetCellStyle(sheet, cell(1, row), cell(1, row), bold)
		row++
	}

	section("1. Patient Details")
	for _, k := range patientKeys(r.PatientDetails) {
		_ = f.SetCellValue(sheet, cell(1, row), compare.DisplayName(k))
		_ = f.SetCellStyle(sheet, cell(1, row), cell(1, row), bold)
		_ = f.SetCellValue(sheet, cell(2, row), r.PatientDetails[k])
		row++
	}
	row++

	section("2. Vitals Summary")
	for i, h := range []string{"S.No", "Vital", "Patient Value", "Normal Range", "Status"} {
		_ = f.SetCellValue(sheet, cell(i+1, row), h)
	}
	_ = f.SetCellStyle(sheet, cell(1, row), cell(5, row), header)
	row++
	for i, e := range r.Comparison {
		_ = f.SetCellValue(sheet, cell(1, row), i+1)
		_ = f.SetCellValue(sheet, cell(2, row), e.Vital)
		_ = f.SetCellValue(sheet, cell(3, row), e.PatientValue.String())
		_ = f.SetCellValue(sheet, cell(4, row), e.NormalRange)
		_ = f.SetCellValue(sheet, cell(5, row), string(e.Status))
		color, ok := statusFill[e.Status]
		if !ok {
			color = defaultFill
		}
		style, err := fillStyle(color)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellStyle(sheet, cell(1, row), cell(5, row), style)
		row++
	}
	row++

	section("3. Key Observations")
	if len(r.Observations) == 0 {
		_ = f.SetCellValue(sheet, cell(1, row), noObservations)
		row++
	}
	for _, o := range r.Observations {
		_ = f.SetCellValue(sheet, cell(1, row), "- "+o)
		row++
	}
	row++

	section("4. Conclusion")
	conclusion := r.Conclusion
	if conclusion == "" {
		conclusion = noConclusion
	}
	_ = f.SetCellValue(sheet, cell(1, row), conclusion)
	row += 2

	_ = f.SetCellValue(sheet, cell(1, row), Disclaimer)

	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "B", 22)
	_ = f.SetColWidth(sheet, "C", "C", 16)
	_ = f.SetColWidth(sheet, "D", "D", 20)
	_ = f.SetColWidth(sheet, "E", "E", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func gridBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

// patientKeys lists the known fields first, then anything else alphabetically.
func patientKeys(p map[string]string) []string {
	keys := make([]string, 0, len(p))
	known := map[string]bool{}
	for _, k := range constants.PatientFields {
		known[k] = true
		if _, ok := p[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range p {
		if !known[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// HistoryXLSX returns one row per stored report of the owner, newest first.
func (s *Service) HistoryXLSX(ctx context.Context, ownerID string) ([]byte, error) {
	start := time.Now()

	recs, err := s.repo.ListByOwner(ctx, ownerID, 0)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}

	f, err := newWorkbook(HistorySheet)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	const sheet = HistorySheet

	headers := []string{
		"Uploaded",
		"Filename",
		"Status",
		"Conclusion",
		"BMI",
		"Respiratory Rate",
		"Heart Rate",
		"Blood Pressure",
	}
	for i, h := range headers {
		_ = f.SetCellValue(sheet, cell(i+1, 1), h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			_ = f.SetCellValue(sheet, cell(col, row), v)
		}
		write(1, r.UploadedAt.UTC().Format("2006-01-02 15:04"))
		write(2, r.OriginalFilename)
		write(3, string(r.Status))
		write(4, r.Conclusion)
		if r.BMI != nil {
			write(5, *r.BMI)
		}
		if r.RespiratoryRate != nil {
			write(6, *r.RespiratoryRate)
		}
		if hr, ok := r.Vitals.Get(constants.VitalHeartRate); ok {
			write(7, hr)
		}
		if bp, ok := r.Vitals.Get(constants.VitalBloodPressure); ok {
			write(8, bp)
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 18)
	_ = f.SetColWidth(sheet, "B", "B", 28)
	_ = f.SetColWidth(sheet, "C", "C", 12)
	_ = f.SetColWidth(sheet, "D", "D", 60)
	_ = f.SetColWidth(sheet, "E", "H", 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		zap.String("owner_id", ownerID),
		zap.Int("rows", len(recs)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return buf.Bytes(), nil
}
