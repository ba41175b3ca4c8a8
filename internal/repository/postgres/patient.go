package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
	"github.com/vitalapp/clinic-api/internal/search"
)

const patientColumnList = `id, full_name, document_number, birth_date, age, phone, address, gender,
	emergency_contact, emergency_phone, active, user_id, version, created_at, updated_at`

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (` + patientColumnList + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	now := time.Now()
	patient.CreatedAt = now
	patient.UpdatedAt = now
	patient.Version = 1

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.FullName,
		patient.DocumentNumber,
		patient.BirthDate,
		patient.Age,
		patient.Phone,
		patient.Address,
		patient.Gender,
		patient.EmergencyContact,
		patient.EmergencyPhone,
		patient.Active,
		patient.UserID,
		patient.Version,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", mapError(err))
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var patient model.Patient
	if err := r.get(ctx, &patient, `SELECT `+patientColumnList+` FROM patients WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByDocumentNumber(ctx context.Context, documentNumber string) (*model.Patient, error) {
	var patient model.Patient
	if err := r.get(ctx, &patient, `SELECT `+patientColumnList+` FROM patients WHERE document_number = $1`, documentNumber); err != nil {
		return nil, fmt.Errorf("failed to get patient by document: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) ExistsByDocumentNumber(ctx context.Context, documentNumber string) (bool, error) {
	ok, err := r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM patients WHERE document_number = $1)`, documentNumber)
	if err != nil {
		return false, fmt.Errorf("failed to check patient document: %w", err)
	}
	return ok, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients SET
			full_name = $1, document_number = $2, birth_date = $3, age = $4, phone = $5,
			address = $6, gender = $7, emergency_contact = $8, emergency_phone = $9,
			active = $10, user_id = $11, version = version + 1, updated_at = $12
		WHERE id = $13 AND version = $14
	`
	now := time.Now()
	err := r.versionedUpdate(ctx, "patients", patient.ID, query,
		patient.FullName,
		patient.DocumentNumber,
		patient.BirthDate,
		patient.Age,
		patient.Phone,
		patient.Address,
		patient.Gender,
		patient.EmergencyContact,
		patient.EmergencyPhone,
		patient.Active,
		patient.UserID,
		now,
		patient.ID,
		patient.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	patient.Version++
	patient.UpdatedAt = now
	return nil
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) (*repository.PatientDeleteResult, error) {
	res := &repository.PatientDeleteResult{}

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var locked uuid.UUID
		if err := tx.GetContext(ctx, &locked, `SELECT id FROM patients WHERE id = $1 FOR UPDATE`, id); err != nil {
			return err
		}

		out, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE patient_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete appointments: %w", err)
		}
		if res.Appointments, err = out.RowsAffected(); err != nil {
			return err
		}

		out, err = tx.ExecContext(ctx, `DELETE FROM triages WHERE patient_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete triages: %w", err)
		}
		if res.Triages, err = out.RowsAffected(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to delete patient: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to delete patient: %w", err)
	}
	return res, nil
}

func (r *patientRepository) Find(ctx context.Context, pred search.Predicate, sort search.Sort, page search.PageRequest) ([]*model.Patient, int64, error) {
	where, err := renderPatientPredicate(pred)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM patients`+where.String(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM patients%s%s LIMIT $%d OFFSET $%d`,
		patientColumnList, where.String(), patientOrderBy(sort), where.next(), where.next()+1)
	args := append(append([]interface{}{}, where.args...), page.Size, page.Offset())

	patients := make([]*model.Patient, 0, page.Size)
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}

func (r *patientRepository) FindAll(ctx context.Context, pred search.Predicate, sort search.Sort) ([]*model.Patient, error) {
	where, err := renderPatientPredicate(pred)
	if err != nil {
		return nil, err
	}

	patients := make([]*model.Patient, 0)
	query := `SELECT ` + patientColumnList + ` FROM patients` + where.String() + patientOrderBy(sort)
	if err := r.db.SelectContext(ctx, &patients, query, where.args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}
