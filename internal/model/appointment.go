package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled  AppointmentStatus = "SCHEDULED"
	AppointmentStatusConfirmed  AppointmentStatus = "CONFIRMED"
	AppointmentStatusInProgress AppointmentStatus = "IN_PROGRESS"
	AppointmentStatusCompleted  AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled  AppointmentStatus = "CANCELLED"
	AppointmentStatusNoShow     AppointmentStatus = "NO_SHOW"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed, AppointmentStatusInProgress,
		AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

const (
	DefaultAppointmentDuration = 30
	MinAppointmentDuration     = 15
	MaxAppointmentDuration     = 240
)

type Appointment struct {
	Base
	Versioned
	PatientID       uuid.UUID         `json:"patientId" db:"patient_id"`
	DoctorName      string            `json:"doctorName" db:"doctor_name"`
	Specialty       string            `json:"specialty" db:"specialty"`
	ScheduledAt     time.Time         `json:"scheduledAt" db:"scheduled_at"`
	DurationMinutes int               `json:"durationMinutes" db:"duration_minutes"`
	Status          AppointmentStatus `json:"status" db:"status"`
	Reason          string            `json:"reason" db:"reason"`
	Notes           string            `json:"notes" db:"notes"`
	ReminderSent    bool              `json:"reminderSent" db:"reminder_sent"`
}

type CreateAppointmentRequest struct {
	PatientID       uuid.UUID `json:"patientId" binding:"required"`
	DoctorName      string    `json:"doctorName" binding:"required,max=100"`
	Specialty       string    `json:"specialty" binding:"required,max=100"`
	ScheduledAt     time.Time `json:"scheduledAt" binding:"required"`
	DurationMinutes *int      `json:"durationMinutes" binding:"omitempty,min=15,max=240"`
	Reason          string    `json:"reason" binding:"required,max=500"`
	Notes           string    `json:"notes" binding:"max=1000"`
}

// UpdateAppointmentRequest applies only the fields that are set.
type UpdateAppointmentRequest struct {
	DoctorName      *string    `json:"doctorName" binding:"omitempty,max=100"`
	Specialty       *string    `json:"specialty" binding:"omitempty,max=100"`
	ScheduledAt     *time.Time `json:"scheduledAt"`
	DurationMinutes *int       `json:"durationMinutes" binding:"omitempty,min=15,max=240"`
	Reason          *string    `json:"reason" binding:"omitempty,max=500"`
	Notes           *string    `json:"notes" binding:"omitempty,max=1000"`
	Version         *int64     `json:"version"`
}

type UpdateAppointmentStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,oneof=SCHEDULED CONFIRMED IN_PROGRESS COMPLETED CANCELLED NO_SHOW"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// AppointmentFilters narrows appointment listings. Zero values match everything.
type AppointmentFilters struct {
	PatientID      *uuid.UUID
	Status         AppointmentStatus
	ScheduledAfter *time.Time
}

// AppointmentCreatedEvent is published after an appointment is booked.
type AppointmentCreatedEvent struct {
	Appointment Appointment `json:"appointment"`
	PatientID   uuid.UUID   `json:"patientId"`
	Timestamp   time.Time   `json:"timestamp"`
}

// AppointmentStatusChangedEvent carries both sides of a status transition.
type AppointmentStatusChangedEvent struct {
	Appointment Appointment       `json:"appointment"`
	OldStatus   AppointmentStatus `json:"oldStatus"`
	NewStatus   AppointmentStatus `json:"newStatus"`
	PatientID   uuid.UUID         `json:"patientId"`
	ChangedBy   uuid.UUID         `json:"changedBy"`
	Timestamp   time.Time         `json:"timestamp"`
}
