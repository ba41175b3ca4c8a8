package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
)

const triageColumnList = `id, patient_id, symptoms, blood_pressure, heart_rate, temperature, oxygen_saturation,
	severity_level, recommended_action, status, notes, created_by, version, created_at, updated_at`

type triageRepository struct {
	BaseRepository
}

func NewTriageRepository(db *sqlx.DB) repository.TriageRepository {
	return &triageRepository{NewBaseRepository(db)}
}

func (r *triageRepository) Create(ctx context.Context, triage *model.Triage) error {
	query := `
		INSERT INTO triages (` + triageColumnList + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	if triage.ID == uuid.Nil {
		triage.ID = uuid.New()
	}
	now := time.Now()
	triage.CreatedAt = now
	triage.UpdatedAt = now
	triage.Version = 1

	_, err := r.db.ExecContext(ctx, query,
		triage.ID,
		triage.PatientID,
		triage.Symptoms,
		triage.BloodPressure,
		triage.HeartRate,
		triage.Temperature,
		triage.OxygenSaturation,
		triage.SeverityLevel,
		triage.RecommendedAction,
		triage.Status,
		triage.Notes,
		triage.CreatedBy,
		triage.Version,
		triage.CreatedAt,
		triage.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create triage: %w", mapError(err))
	}
	return nil
}

func (r *triageRepository) Get(ctx context.Context, id uuid.UUID) (*model.Triage, error) {
	var triage model.Triage
	if err := r.get(ctx, &triage, `SELECT `+triageColumnList+` FROM triages WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get triage: %w", err)
	}
	return &triage, nil
}

func (r *triageRepository) Update(ctx context.Context, triage *model.Triage) error {
	query := `
		UPDATE triages SET
			blood_pressure = $1, heart_rate = $2, temperature = $3, oxygen_saturation = $4,
			recommended_action = $5, status = $6, notes = $7,
			version = version + 1, updated_at = $8
		WHERE id = $9 AND version = $10
	`
	now := time.Now()
	err := r.versionedUpdate(ctx, "triages", triage.ID, query,
		triage.BloodPressure,
		triage.HeartRate,
		triage.Temperature,
		triage.OxygenSaturation,
		triage.RecommendedAction,
		triage.Status,
		triage.Notes,
		now,
		triage.ID,
		triage.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update triage: %w", err)
	}
	triage.Version++
	triage.UpdatedAt = now
	return nil
}

func (r *triageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.execOne(ctx, `DELETE FROM triages WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete triage: %w", err)
	}
	return nil
}

func (r *triageRepository) List(ctx context.Context, filters model.TriageFilters) ([]*model.Triage, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filters.PatientID != nil {
		args = append(args, *filters.PatientID)
		conds = append(conds, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + triageColumnList + ` FROM triages`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	triages := make([]*model.Triage, 0)
	if err := r.db.SelectContext(ctx, &triages, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list triages: %w", err)
	}
	return triages, nil
}
