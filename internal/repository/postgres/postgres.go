package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/vitalapp/clinic-api/internal/repository"
)

// NewRepositories builds every store over one database handle.
func NewRepositories(db *sqlx.DB) *repository.Repositories {
	return &repository.Repositories{
		Patients:      NewPatientRepository(db),
		Triages:       NewTriageRepository(db),
		Appointments:  NewAppointmentRepository(db),
		Notifications: NewNotificationRepository(db),
		Users:         NewUserRepository(db),
	}
}
