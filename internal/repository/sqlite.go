package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/common"
	"github.com/joseph-ayodele/medreports/internal/entity"
)

const reportColumns = `id, owner_id, original_filename, storage_path, file_ext, file_size_kb,
	content_hash, status, error_message, extracted_text, patient_details, vitals,
	comparison, observations, conclusion, bmi, respiratory_rate, uploaded_at, processed_at`

// sqliteReports stores timestamps as UTC unix microseconds so ordering is numeric.
type sqliteReports struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteReports(db *sql.DB, logger *zap.Logger) ReportRepository {
	return &sqliteReports{db: db, logger: orNop(logger)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteReport(row rowScanner) (*entity.Report, error) {
	var (
		r          entity.Report
		id         string
		status     string
		cols       analysisColumns
		uploadedAt int64
		processed  sql.NullInt64
		bmi, rr    sql.NullFloat64
	)
	err := row.Scan(&id, &r.OwnerID, &r.OriginalFilename, &r.StoragePath, &r.FileExt, &r.FileSizeKB,
		&r.ContentHash, &status, &r.ErrorMessage, &r.ExtractedText,
		&cols.patient, &cols.vitals, &cols.comparison, &cols.observations,
		&r.Conclusion, &bmi, &rr, &uploadedAt, &processed)
	if err != nil {
		return nil, err
	}
	if r.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse report id %q: %w", id, err)
	}
	r.Status = constants.ReportStatus(status)
	if bmi.Valid {
		r.BMI = &bmi.Float64
	}
	if rr.Valid {
		r.RespiratoryRate = &rr.Float64
	}
	r.UploadedAt = time.UnixMicro(uploadedAt).UTC()
	if processed.Valid {
		t := time.UnixMicro(processed.Int64).UTC()
		r.ProcessedAt = &t
	}
	if err := cols.decodeInto(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func (s *sqliteReports) Create(ctx context.Context, r *entity.Report) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.UploadedAt.IsZero() {
		r.UploadedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = constants.ReportStatusQueued
	}
	cols, err := encodeAnalysis(r)
	if err != nil {
		return err
	}
	var processed sql.NullInt64
	if r.ProcessedAt != nil {
		processed = sql.NullInt64{Int64: r.ProcessedAt.UnixMicro(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.OwnerID, r.OriginalFilename, r.StoragePath, r.FileExt, r.FileSizeKB,
		r.ContentHash, string(r.Status), r.ErrorMessage, r.ExtractedText,
		string(cols.patient), string(cols.vitals), string(cols.comparison), string(cols.observations),
		r.Conclusion, nullFloat(r.BMI), nullFloat(r.RespiratoryRate), r.UploadedAt.UnixMicro(), processed)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return common.NewAppError("DUPLICATE", "report already uploaded", common.ErrDuplicate)
		}
		s.logger.Error("failed to insert report", zap.String("report_id", r.ID.String()), zap.Error(err))
		return fmt.Errorf("%w: insert report: %v", common.ErrDatabase, err)
	}
	return nil
}

func (s *sqliteReports) Get(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id.String())
	r, err := scanSQLiteReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "report not found", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get report: %v", common.ErrDatabase, err)
	}
	return r, nil
}

func (s *sqliteReports) FindByHash(ctx context.Context, ownerID, hash string) (*entity.Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports
		WHERE owner_id = ? AND content_hash = ?`, ownerID, hash)
	r, err := scanSQLiteReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "report not found", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find report by hash: %v", common.ErrDatabase, err)
	}
	return r, nil
}

func (s *sqliteReports) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*entity.Report, error) {
	if limit <= 0 {
		limit = -1 // no limit in sqlite
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports
		WHERE owner_id = ? ORDER BY uploaded_at DESC, id DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		s.logger.Error("failed to list reports", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("%w: list reports: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	return collectSQLite(rows)
}

func collectSQLite(rows *sql.Rows) ([]*entity.Report, error) {
	var out []*entity.Report
	for rows.Next() {
		r, err := scanSQLiteReport(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan report: %v", common.ErrDatabase, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate reports: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func (s *sqliteReports) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE owner_id = ?`, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count reports: %v", common.ErrDatabase, err)
	}
	return n, nil
}

func (s *sqliteReports) exec(ctx context.Context, op string, id uuid.UUID, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("report update failed", zap.String("op", op), zap.String("report_id", id.String()), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", common.ErrDatabase, op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("NOT_FOUND", "report not found", common.ErrNotFound)
	}
	return nil
}

func (s *sqliteReports) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.ReportStatus, errMsg string) error {
	return s.exec(ctx, "update status", id,
		`UPDATE reports SET status = ?, error_message = ? WHERE id = ?`, string(status), errMsg, id.String())
}

func (s *sqliteReports) SaveText(ctx context.Context, id uuid.UUID, text string) error {
	return s.exec(ctx, "save text", id,
		`UPDATE reports SET extracted_text = ?, status = ?, error_message = '' WHERE id = ?`,
		text, string(constants.ReportStatusTextOK), id.String())
}

func (s *sqliteReports) SaveAnalysis(ctx context.Context, id uuid.UUID, a entity.Analysis, processedAt time.Time) error {
	cols, err := encodeAnalysis(analysisReport(a))
	if err != nil {
		return err
	}
	return s.exec(ctx, "save analysis", id,
		`UPDATE reports SET patient_details = ?, vitals = ?, comparison = ?, observations = ?,
			conclusion = ?, bmi = ?, respiratory_rate = ?, processed_at = ?, status = ?, error_message = ''
		WHERE id = ?`,
		string(cols.patient), string(cols.vitals), string(cols.comparison), string(cols.observations),
		a.Conclusion, nullFloat(a.BMI), nullFloat(a.RespiratoryRate), processedAt.UTC().UnixMicro(),
		string(constants.ReportStatusAnalyzed), id.String())
}

func (s *sqliteReports) Prune(ctx context.Context, ownerID string, keep int) ([]*entity.Report, error) {
	if keep < 0 {
		keep = 0
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin prune: %v", common.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports
		WHERE owner_id = ? ORDER BY uploaded_at DESC, id DESC LIMIT -1 OFFSET ?`, ownerID, keep)
	if err != nil {
		return nil, fmt.Errorf("%w: select prunable reports: %v", common.ErrDatabase, err)
	}
	stale, err := collectSQLite(rows)
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	for _, r := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, r.ID.String()); err != nil {
			return nil, fmt.Errorf("%w: delete report: %v", common.ErrDatabase, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit prune: %v", common.ErrDatabase, err)
	}
	if len(stale) > 0 {
		s.logger.Info("pruned old reports", zap.String("owner_id", ownerID), zap.Int("deleted", len(stale)))
	}
	return stale, nil
}
