package notification

import (
	"fmt"

	"github.com/vitalapp/clinic-api/internal/model"
)

const scheduleLayout = "2006-01-02T15:04"

// AppointmentPolicy tells the patient about confirmations, cancellations
// and the start of an appointment.
type AppointmentPolicy struct{}

// Evaluate depends only on the new status. The intent has no recipient.
func (AppointmentPolicy) Evaluate(a model.Appointment, _, newStatus model.AppointmentStatus) *Intent {
	intent := &Intent{
		RelatedEntityType: model.RelatedEntityAppointment,
		RelatedEntityID:   a.ID,
	}
	when := a.ScheduledAt.Format(scheduleLayout)

	switch newStatus {
	case model.AppointmentStatusConfirmed:
		intent.Title = "Cita Confirmada"
		intent.Message = fmt.Sprintf("Tu cita del %s ha sido confirmada", when)
		intent.Type = model.NotificationTypeSuccess
		intent.Priority = model.NotificationPriorityMedium
	case model.AppointmentStatusCancelled:
		intent.Title = "Cita Cancelada"
		intent.Message = fmt.Sprintf("Tu cita del %s ha sido cancelada", when)
		intent.Type = model.NotificationTypeWarning
		intent.Priority = model.NotificationPriorityHigh
	case model.AppointmentStatusInProgress:
		intent.Title = "Cita en Progreso"
		intent.Message = "Tu cita está en progreso"
		intent.Type = model.NotificationTypeInfo
		intent.Priority = model.NotificationPriorityLow
	default:
		return nil
	}
	return intent
}
