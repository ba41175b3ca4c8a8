// Package memory implements the repositories over process-local maps. It
// backs the "memory" storage driver and the service tests.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
)

// DB holds every table behind one lock so multi-table operations stay atomic.
type DB struct {
	mu            sync.RWMutex
	patients      map[uuid.UUID]*model.Patient
	triages       map[uuid.UUID]*model.Triage
	appointments  map[uuid.UUID]*model.Appointment
	notifications map[uuid.UUID]*model.Notification
	users         map[uuid.UUID]*model.User
}

func NewDB() *DB {
	return &DB{
		patients:      make(map[uuid.UUID]*model.Patient),
		triages:       make(map[uuid.UUID]*model.Triage),
		appointments:  make(map[uuid.UUID]*model.Appointment),
		notifications: make(map[uuid.UUID]*model.Notification),
		users:         make(map[uuid.UUID]*model.User),
	}
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

// NewRepositories builds every store over db.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		Patients:      NewPatientRepository(db),
		Triages:       NewTriageRepository(db),
		Appointments:  NewAppointmentRepository(db),
		Notifications: NewNotificationRepository(db),
		Users:         NewUserRepository(db),
	}
}
