package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/medreports/constants"
	"github.com/joseph-ayodele/medreports/internal/compare"
	"github.com/joseph-ayodele/medreports/internal/entity"
)

// ReportRepository persists reports. Lists are newest first.
type ReportRepository interface {
	Create(ctx context.Context, r *entity.Report) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	FindByHash(ctx context.Context, ownerID, hash string) (*entity.Report, error)
	// ListByOwner returns at most limit reports; limit <= 0 returns all of them.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*entity.Report, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.ReportStatus, errMsg string) error
	SaveText(ctx context.Context, id uuid.UUID, text string) error
	SaveAnalysis(ctx context.Context, id uuid.UUID, a entity.Analysis, processedAt time.Time) error

	// Prune deletes all but the newest keep reports of the owner and returns the deleted rows.
	Prune(ctx context.Context, ownerID string, keep int) ([]*entity.Report, error)
}

// analysisColumns holds the JSON encoded analysis columns shared by both drivers.
type analysisColumns struct {
	patient      []byte
	vitals       []byte
	comparison   []byte
	observations []byte
}

func encodeAnalysis(r *entity.Report) (analysisColumns, error) {
	var (
		c   analysisColumns
		err error
	)
	patient := r.PatientDetails
	if patient == nil {
		patient = map[string]string{}
	}
	if c.patient, err = json.Marshal(patient); err != nil {
		return c, fmt.Errorf("encode patient details: %w", err)
	}
	if c.vitals, err = json.Marshal(r.Vitals); err != nil {
		return c, fmt.Errorf("encode vitals: %w", err)
	}
	comparison := r.Comparison
	if comparison == nil {
		comparison = []compare.Entry{}
	}
	if c.comparison, err = json.Marshal(comparison); err != nil {
		return c, fmt.Errorf("encode comparison: %w", err)
	}
	observations := r.Observations
	if observations == nil {
		observations = []string{}
	}
	if c.observations, err = json.Marshal(observations); err != nil {
		return c, fmt.Errorf("encode observations: %w", err)
	}
	return c, nil
}

func (c analysisColumns) decodeInto(r *entity.Report) error {
	if len(c.patient) > 0 {
		if err := json.Unmarshal(c.patient, &r.PatientDetails); err != nil {
			return fmt.Errorf("decode patient details: %w", err)
		}
	}
	if len(c.vitals) > 0 {
		if err := json.Unmarshal(c.vitals, &r.Vitals); err != nil {
			return fmt.Errorf("decode vitals: %w", err)
		}
	}
	if len(c.comparison) > 0 {
		if err := json.Unmarshal(c.comparison, &r.Comparison); err != nil {
			return fmt.Errorf("decode comparison: %w", err)
		}
		if len(r.Comparison) == 0 {
			r.Comparison = nil
		}
	}
	if len(c.observations) > 0 {
		if err := json.Unmarshal(c.observations, &r.Observations); err != nil {
			return fmt.Errorf("decode observations: %w", err)
		}
		if len(r.Observations) == 0 {
			r.Observations = nil
		}
	}
	if len(r.PatientDetails) == 0 {
		r.PatientDetails = nil
	}
	return nil
}

func analysisReport(a entity.Analysis) *entity.Report {
	r := &entity.Report{}
	a.Apply(r)
	return r
}
