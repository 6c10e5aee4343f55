package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/common"
	"github.com/joseph-ayodele/medreports/internal/entity"
)

type postgresReports struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresReports(pool *pgxpool.Pool, logger *zap.Logger) ReportRepository {
	return &postgresReports{pool: pool, logger: orNop(logger)}
}

func scanPostgresReport(row pgx.Row) (*entity.Report, error) {
	var (
		r      entity.Report
		status string
		cols   analysisColumns
	)
	err := row.Scan(&r.ID, &r.OwnerID, &r.OriginalFilename, &r.StoragePath, &r.FileExt, &r.FileSizeKB,
		&r.ContentHash, &status, &r.ErrorMessage, &r.ExtractedText,
		&cols.patient, &cols.vitals, &cols.comparison, &cols.observations,
		&r.Conclusion, &r.BMI, &r.RespiratoryRate, &r.UploadedAt, &r.ProcessedAt)
	if err != nil {
		return nil, err
	}
	r.Status = constants.ReportStatus(status)
	r.UploadedAt = r.UploadedAt.UTC()
	if r.ProcessedAt != nil {
		t := r.ProcessedAt.UTC()
		r.ProcessedAt = &t
	}
	if err := cols.decodeInto(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *postgresReports) Create(ctx context.Context, r *entity.Report) error {
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

	_, err = p.pool.Exec(ctx, `INSERT INTO reports (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		r.ID, r.OwnerID, r.OriginalFilename, r.StoragePath, r.FileExt, r.FileSizeKB,
		r.ContentHash, string(r.Status), r.ErrorMessage, r.ExtractedText,
		string(cols.patient), string(cols.vitals), string(cols.comparison), string(cols.observations),
		r.Conclusion, r.BMI, r.RespiratoryRate, r.UploadedAt, r.ProcessedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.NewAppError("DUPLICATE", "report already uploaded", common.ErrDuplicate)
		}
		p.logger.Error("failed to insert report", zap.String("report_id", r.ID.String()), zap.Error(err))
		return fmt.Errorf("%w: insert report: %v", common.ErrDatabase, err)
	}
	return nil
}

func (p *postgresReports) one(ctx context.Context, op, query string, args ...any) (*entity.Report, error) {
	r, err := scanPostgresReport(p.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "report not found", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrDatabase, op, err)
	}
	return r, nil
}

func (p *postgresReports) Get(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	return p.one(ctx, "get report", `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
}

func (p *postgresReports) FindByHash(ctx context.Context, ownerID, hash string) (*entity.Report, error) {
	return p.one(ctx, "find report by hash", `SELECT `+reportColumns+` FROM reports
		WHERE owner_id = $1 AND content_hash = $2`, ownerID, hash)
}

func (p *postgresReports) many(ctx context.Context, rows pgx.Rows) ([]*entity.Report, error) {
	defer rows.Close()
	var out []*entity.Report
	for rows.Next() {
		r, err := scanPostgresReport(rows)
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

func (p *postgresReports) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*entity.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE owner_id = $1 ORDER BY uploaded_at DESC, id DESC`
	args := []any{ownerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		p.logger.Error("failed to list reports", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("%w: list reports: %v", common.ErrDatabase, err)
	}
	return p.many(ctx, rows)
}

func (p *postgresReports) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports WHERE owner_id = $1`, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count reports: %v", common.ErrDatabase, err)
	}
	return n, nil
}

func (p *postgresReports) exec(ctx context.Context, op string, id uuid.UUID, query string, args ...any) error {
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		p.logger.Error("report update failed", zap.String("op", op), zap.String("report_id", id.String()), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", common.ErrDatabase, op, err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError("NOT_FOUND", "report not found", common.ErrNotFound)
	}
	return nil
}

func (p *postgresReports) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.ReportStatus, errMsg string) error {
	return p.exec(ctx, "update status", id,
		`UPDATE reports SET status = $1, error_message = $2 WHERE id = $3`, string(status), errMsg, id)
}

func (p *postgresReports) SaveText(ctx context.Context, id uuid.UUID, text string) error {
	return p.exec(ctx, "save text", id,
		`UPDATE reports SET extracted_text = $1, status = $2, error_message = '' WHERE id = $3`,
		text, string(constants.ReportStatusTextOK), id)
}

func (p *postgresReports) SaveAnalysis(ctx context.Context, id uuid.UUID, a entity.Analysis, processedAt time.Time) error {
	cols, err := encodeAnalysis(analysisReport(a))
	if err != nil {
		return err
	}
	return p.exec(ctx, "save analysis", id,
		`UPDATE reports SET patient_details = $1, vitals = $2, comparison = $3, observations = $4,
			conclusion = $5, bmi = $6, respiratory_rate = $7, processed_at = $8, status = $9, error_message = ''
		WHERE id = $10`,
		string(cols.patient), string(cols.vitals), string(cols.comparison), string(cols.observations),
		a.Conclusion, a.BMI, a.RespiratoryRate, processedAt.UTC(), string(constants.ReportStatusAnalyzed), id)
}

func (p *postgresReports) Prune(ctx context.Context, ownerID string, keep int) ([]*entity.Report, error) {
	if keep < 0 {
		keep = 0
	}
	var stale []*entity.Report
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+reportColumns+` FROM reports
			WHERE owner_id = $1 ORDER BY uploaded_at DESC, id DESC OFFSET $2 FOR UPDATE`, ownerID, keep)
		if err != nil {
			return err
		}
		if stale, err = p.many(ctx, rows); err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, len(stale))
		for i, r := range stale {
			ids[i] = r.ID
		}
		_, err = tx.Exec(ctx, `DELETE FROM reports WHERE id = ANY($1)`, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: prune reports: %v", common.ErrDatabase, err)
	}
	if len(stale) > 0 {
		p.logger.Info("pruned old reports", zap.String("owner_id", ownerID), zap.Int("deleted", len(stale)))
	}
	return stale, nil
}
