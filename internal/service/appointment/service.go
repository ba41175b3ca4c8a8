package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
	"github.com/vitalapp/clinic-api/pkg/event"
	"github.com/vitalapp/clinic-api/pkg/logger"
	"github.com/vitalapp/clinic-api/pkg/validator"
)

const resource = "appointment"

type Service struct {
	repo      repository.AppointmentRepository
	patients  repository.PatientRepository
	publisher event.Publisher
	validate  validator.Validator
	log       *logger.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo repository.AppointmentRepository, patients repository.PatientRepository, publisher event.Publisher, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		repo:      repo,
		patients:  patients,
		publisher: publisher,
		validate:  validator.New(),
		log:       log.With("appointment-service"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create books a SCHEDULED appointment in the future and publishes
// AppointmentCreatedEvent.
func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}
	now := s.now()
	if !req.ScheduledAt.After(now) {
		return nil, apperrors.NewFieldValidation("scheduledAt", "must be in the future")
	}
	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		return nil, repository.MapError("patient", "get", err)
	}

	duration := model.DefaultAppointmentDuration
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}

	a := &model.Appointment{
		PatientID:       req.PatientID,
		DoctorName:      req.DoctorName,
		Specialty:       req.Specialty,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: duration,
		Status:          model.AppointmentStatusScheduled,
		Reason:          req.Reason,
		Notes:           req.Notes,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, repository.MapError(resource, "create", err)
	}

	s.log.Info("appointment created",
		"appointment_id", a.ID.String(),
		"patient_id", a.PatientID.String(),
		"scheduled_at", a.ScheduledAt)

	s.publisher.Publish(ctx, model.AppointmentCreatedEvent{
		Appointment: *a,
		PatientID:   a.PatientID,
		Timestamp:   now,
	})
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error) {
	out, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, repository.MapError(resource, "list", err)
	}
	return out, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	return s.List(ctx, model.AppointmentFilters{PatientID: &patientID})
}

func (s *Service) ListByStatus(ctx context.Context, status model.AppointmentStatus) ([]*model.Appointment, error) {
	return s.List(ctx, model.AppointmentFilters{Status: status})
}

// Upcoming lists appointments scheduled after now, soonest first.
func (s *Service) Upcoming(ctx context.Context) ([]*model.Appointment, error) {
	now := s.now()
	return s.List(ctx, model.AppointmentFilters{ScheduledAfter: &now})
}

// Update edits scheduling details. Status changes go through UpdateStatus.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	if req.Version != nil && *req.Version != a.Version {
		return nil, apperrors.NewConflict(resource, repository.ErrVersionConflict)
	}

	if req.ScheduledAt != nil && !req.ScheduledAt.Equal(a.ScheduledAt) {
		if !req.ScheduledAt.After(s.now()) {
			return nil, apperrors.NewFieldValidation("scheduledAt", "must be in the future")
		}
		a.ScheduledAt = *req.ScheduledAt
	}
	if req.DoctorName != nil {
		a.DoctorName = *req.DoctorName
	}
	if req.Specialty != nil {
		a.Specialty = *req.Specialty
	}
	if req.DurationMinutes != nil {
		a.DurationMinutes = *req.DurationMinutes
	}
	if req.Reason != nil {
		a.Reason = *req.Reason
	}
	if req.Notes != nil {
		a.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, repository.MapError(resource, "update", err)
	}
	return a, nil
}

// UpdateStatus moves the appointment to status and publishes the change.
// Setting the current status again writes and publishes nothing.
func (s *Service) UpdateStatus(ctx context.Context, principal model.Principal, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	if err := s.validate.Validate(&model.UpdateAppointmentStatusRequest{Status: status}); err != nil {
		return nil, err
	}

	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	return s.transition(ctx, principal, a, status, nil)
}

// Cancel records reason in the notes and moves the appointment to CANCELLED.
func (s *Service) Cancel(ctx context.Context, principal model.Principal, id uuid.UUID, reason string) (*model.Appointment, error) {
	if err := s.validate.Validate(&model.CancelAppointmentRequest{Reason: reason}); err != nil {
		return nil, err
	}

	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	return s.transition(ctx, principal, a, model.AppointmentStatusCancelled, func(a *model.Appointment) {
		note := "Cancelada: " + reason
		if a.Notes != "" {
			a.Notes += "\n" + note
		} else {
			a.Notes = note
		}
	})
}

func (s *Service) transition(ctx context.Context, principal model.Principal, a *model.Appointment, status model.AppointmentStatus, mutate func(*model.Appointment)) (*model.Appointment, error) {
	old := a.Status
	if old == status {
		return a, nil
	}

	a.Status = status
	if mutate != nil {
		mutate(a)
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, repository.MapError(resource, "update", err)
	}

	s.log.Info("appointment status changed",
		"appointment_id", a.ID.String(),
		"old_status", string(old),
		"new_status", string(status),
		"changed_by", principal.UserID.String())

	s.publisher.Publish(ctx, model.AppointmentStatusChangedEvent{
		Appointment: *a,
		OldStatus:   old,
		NewStatus:   status,
		PatientID:   a.PatientID,
		ChangedBy:   principal.UserID,
		Timestamp:   s.now(),
	})
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return repository.MapError(resource, "delete", err)
	}
	return nil
}
