package model

import (
	"time"

	"github.com/google/uuid"
)

type TriageStatus string

const (
	TriageStatusPending    TriageStatus = "PENDING"
	TriageStatusInProgress TriageStatus = "IN_PROGRESS"
	TriageStatusCompleted  TriageStatus = "COMPLETED"
)

func (s TriageStatus) Valid() bool {
	switch s {
	case TriageStatusPending, TriageStatusInProgress, TriageStatusCompleted:
		return true
	}
	return false
}

// HighPrioritySeverity is the lowest severity level that alerts staff.
const HighPrioritySeverity = 4

// MaxSeverity is the top of the severity scale.
const MaxSeverity = 5

type Triage struct {
	Base
	Versioned
	PatientID         uuid.UUID    `json:"patientId" db:"patient_id"`
	Symptoms          string       `json:"symptoms" db:"symptoms"`
	BloodPressure     string       `json:"bloodPressure" db:"blood_pressure"`
	HeartRate         *int         `json:"heartRate,omitempty" db:"heart_rate"`
	Temperature       *float64     `json:"temperature,omitempty" db:"temperature"`
	OxygenSaturation  *int         `json:"oxygenSaturation,omitempty" db:"oxygen_saturation"`
	SeverityLevel     int          `json:"severityLevel" db:"severity_level"`
	RecommendedAction string       `json:"recommendedAction" db:"recommended_action"`
	Status            TriageStatus `json:"status" db:"status"`
	Notes             string       `json:"notes" db:"notes"`
	CreatedBy         *uuid.UUID   `json:"createdBy,omitempty" db:"created_by"`
}

type CreateTriageRequest struct {
	PatientID         uuid.UUID `json:"patientId" binding:"required"`
	Symptoms          string    `json:"symptoms" binding:"required,max=500"`
	BloodPressure     string    `json:"bloodPressure" binding:"omitempty,bloodpressure"`
	HeartRate         *int      `json:"heartRate" binding:"omitempty,min=30,max=200"`
	Temperature       *float64  `json:"temperature" binding:"omitempty,min=35,max=42"`
	OxygenSaturation  *int      `json:"oxygenSaturation" binding:"omitempty,min=0,max=100"`
	SeverityLevel     int       `json:"severityLevel" binding:"required,min=1,max=5"`
	RecommendedAction string    `json:"recommendedAction" binding:"required,max=500"`
	Notes             string    `json:"notes" binding:"max=1000"`
}

// UpdateTriageRequest applies only the fields that are set. Severity is fixed
// at intake.
type UpdateTriageRequest struct {
	BloodPressure     *string  `json:"bloodPressure" binding:"omitempty,bloodpressure"`
	HeartRate         *int     `json:"heartRate" binding:"omitempty,min=30,max=200"`
	Temperature       *float64 `json:"temperature" binding:"omitempty,min=35,max=42"`
	OxygenSaturation  *int     `json:"oxygenSaturation" binding:"omitempty,min=0,max=100"`
	RecommendedAction *string  `json:"recommendedAction" binding:"omitempty,max=500"`
	Notes             *string  `json:"notes" binding:"omitempty,max=1000"`
	Version           *int64   `json:"version"`
}

type UpdateTriageStatusRequest struct {
	Status TriageStatus `json:"status" binding:"required,oneof=PENDING IN_PROGRESS COMPLETED"`
}

// TriageFilters narrows triage listings. Zero values match everything.
type TriageFilters struct {
	PatientID *uuid.UUID
	Status    TriageStatus
}

// TriageCreatedEvent is published once after a triage is stored.
type TriageCreatedEvent struct {
	Triage        Triage    `json:"triage"`
	PatientID     uuid.UUID `json:"patientId"`
	SeverityLevel int       `json:"severityLevel"`
	Timestamp     time.Time `json:"timestamp"`
}
