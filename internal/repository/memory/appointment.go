package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
)

type appointmentRepository struct {
	db *DB
}

func NewAppointmentRepository(db *DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.patients[appointment.PatientID]; !ok {
		return repository.ErrNotFound
	}
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	now := time.Now()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now
	appointment.Version = 1

	r.db.appointments[appointment.ID] = clone(appointment)
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	a, ok := r.db.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(a), nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.appointments[appointment.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != appointment.Version {
		return repository.ErrVersionConflict
	}

	appointment.Version++
	appointment.CreatedAt = current.CreatedAt
	appointment.UpdatedAt = time.Now()
	r.db.appointments[appointment.ID] = clone(appointment)
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.appointments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.appointments, id)
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*model.Appointment, 0)
	for _, a := range r.db.appointments {
		if filters.PatientID != nil && a.PatientID != *filters.PatientID {
			continue
		}
		if filters.Status != "" && a.Status != filters.Status {
			continue
		}
		if filters.ScheduledAfter != nil && !a.ScheduledAt.After(*filters.ScheduledAfter) {
			continue
		}
		out = append(out, clone(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}
