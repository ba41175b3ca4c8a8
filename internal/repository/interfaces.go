package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/search"
)

// Store errors shared by every implementation.
var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("duplicate record")
	ErrVersionConflict = errors.New("record version conflict")
)

// PatientDeleteResult counts the rows removed by a cascading patient delete.
type PatientDeleteResult struct {
	Appointments int64
	Triages      int64
}

// Repositories bundles one implementation of every store.
type Repositories struct {
	Patients      PatientRepository
	Triages       TriageRepository
	Appointments  AppointmentRepository
	Notifications NotificationRepository
	Users         UserRepository
}

// All repository interfaces in one file
type (
	// PatientRepository handles patient records
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByDocumentNumber(ctx context.Context, documentNumber string) (*model.Patient, error)
		ExistsByDocumentNumber(ctx context.Context, documentNumber string) (bool, error)
		// Update writes patient if its version still matches and bumps it.
		Update(ctx context.Context, patient *model.Patient) error
		// Delete removes the patient with its appointments and triages atomically.
		Delete(ctx context.Context, id uuid.UUID) (*PatientDeleteResult, error)
		// Find returns one page of matches and the total match count.
		Find(ctx context.Context, pred search.Predicate, sort search.Sort, page search.PageRequest) ([]*model.Patient, int64, error)
		FindAll(ctx context.Context, pred search.Predicate, sort search.Sort) ([]*model.Patient, error)
	}

	// TriageRepository handles triage records
	TriageRepository interface {
		Create(ctx context.Context, triage *model.Triage) error
		Get(ctx context.Context, id uuid.UUID) (*model.Triage, error)
		Update(ctx context.Context, triage *model.Triage) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters model.TriageFilters) ([]*model.Triage, error)
	}

	// AppointmentRepository handles appointment records
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, id uuid.UUID) error
		// List orders by scheduled time ascending.
		List(ctx context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error)
	}

	// NotificationRepository handles notification persistence
	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
		Update(ctx context.Context, notification *model.Notification) error
		Delete(ctx context.Context, id uuid.UUID) error
		// List orders newest first.
		List(ctx context.Context, filters model.NotificationFilters) ([]*model.Notification, error)
		CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
		MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (*model.Notification, error)
		MarkAllRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error)
		DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	}

	// UserRepository handles user accounts
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		ExistsByUsername(ctx context.Context, username string) (bool, error)
		ExistsByEmail(ctx context.Context, email string) (bool, error)
		Update(ctx context.Context, user *model.User) error
		Delete(ctx context.Context, id uuid.UUID) error
		// List orders by username.
		List(ctx context.Context, activeOnly bool) ([]*model.User, error)
	}
)
