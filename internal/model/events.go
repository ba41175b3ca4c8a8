package model

import "github.com/vitalapp/clinic-api/pkg/event"

// Event types published by the domain services.
const (
	EventTriageCreated            event.EventType = "triage.created"
	EventAppointmentCreated       event.EventType = "appointment.created"
	EventAppointmentStatusChanged event.EventType = "appointment.status_changed"
)

func (TriageCreatedEvent) EventType() event.EventType { return EventTriageCreated }

func (AppointmentCreatedEvent) EventType() event.EventType { return EventAppointmentCreated }

func (AppointmentStatusChangedEvent) EventType() event.EventType {
	return EventAppointmentStatusChanged
}
