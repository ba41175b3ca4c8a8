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

const appointmentColumnList = `id, patient_id, doctor_name, specialty, scheduled_at, duration_minutes,
	status, reason, notes, reminder_sent, version, created_at, updated_at`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumnList + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	now := time.Now()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now
	appointment.Version = 1

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorName,
		appointment.Specialty,
		appointment.ScheduledAt,
		appointment.DurationMinutes,
		appointment.Status,
		appointment.Reason,
		appointment.Notes,
		appointment.ReminderSent,
		appointment.Version,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", mapError(err))
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var appointment model.Appointment
	if err := r.get(ctx, &appointment, `SELECT `+appointmentColumnList+` FROM appointments WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments SET
			doctor_name = $1, specialty = $2, scheduled_at = $3, duration_minutes = $4,
			status = $5, reason = $6, notes = $7, reminder_sent = $8,
			version = version + 1, updated_at = $9
		WHERE id = $10 AND version = $11
	`
	now := time.Now()
	err := r.versionedUpdate(ctx, "appointments", appointment.ID, query,
		appointment.DoctorName,
		appointment.Specialty,
		appointment.ScheduledAt,
		appointment.DurationMinutes,
		appointment.Status,
		appointment.Reason,
		appointment.Notes,
		appointment.ReminderSent,
		now,
		appointment.ID,
		appointment.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	appointment.Version++
	appointment.UpdatedAt = now
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.execOne(ctx, `DELETE FROM appointments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error) {
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
	if filters.ScheduledAfter != nil {
		args = append(args, *filters.ScheduledAfter)
		conds = append(conds, fmt.Sprintf("scheduled_at > $%d", len(args)))
	}

	query := `SELECT ` + appointmentColumnList + ` FROM appointments`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY scheduled_at ASC"

	appointments := make([]*model.Appointment, 0)
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}
