package model

import (
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Valid reports whether g is a known gender.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type Patient struct {
	Base
	Versioned
	FullName         string     `json:"fullName" db:"full_name"`
	DocumentNumber   string     `json:"documentNumber" db:"document_number"`
	BirthDate        *Date      `json:"birthDate,omitempty" db:"birth_date"`
	Age              int        `json:"age" db:"age"`
	Phone            string     `json:"phone" db:"phone"`
	Address          string     `json:"address" db:"address"`
	Gender           Gender     `json:"gender" db:"gender"`
	EmergencyContact string     `json:"emergencyContact" db:"emergency_contact"`
	EmergencyPhone   string     `json:"emergencyPhone" db:"emergency_phone"`
	Active           bool       `json:"active" db:"active"`
	UserID           *uuid.UUID `json:"userId,omitempty" db:"user_id"`
}

// AgeAt returns whole years from the birth date to now. The stored age is
// only used when no birth date is on record.
func (p *Patient) AgeAt(now time.Time) int {
	if p.BirthDate == nil {
		return p.Age
	}
	return p.BirthDate.YearsSince(DateOf(now))
}

// PatientSummary is the projection returned by patient listings.
type PatientSummary struct {
	ID               uuid.UUID `json:"id"`
	FullName         string    `json:"fullName"`
	DocumentNumber   string    `json:"documentNumber"`
	BirthDate        *Date     `json:"birthDate,omitempty"`
	Age              int       `json:"age"`
	Phone            string    `json:"phone"`
	Address          string    `json:"address"`
	Gender           Gender    `json:"gender"`
	EmergencyContact string    `json:"emergencyContact"`
	EmergencyPhone   string    `json:"emergencyPhone"`
	Active           bool      `json:"active"`
}

// Summary maps p to its listing projection with the age computed at now.
func (p *Patient) Summary(now time.Time) PatientSummary {
	return PatientSummary{
		ID:               p.ID,
		FullName:         p.FullName,
		DocumentNumber:   p.DocumentNumber,
		BirthDate:        p.BirthDate,
		Age:              p.AgeAt(now),
		Phone:            p.Phone,
		Address:          p.Address,
		Gender:           p.Gender,
		EmergencyContact: p.EmergencyContact,
		EmergencyPhone:   p.EmergencyPhone,
		Active:           p.Active,
	}
}

type CreatePatientRequest struct {
	FullName         string     `json:"fullName" binding:"required,min=3,max=100,personname"`
	DocumentNumber   string     `json:"documentNumber" binding:"required,min=5,max=20"`
	BirthDate        *Date      `json:"birthDate" binding:"required"`
	Phone            string     `json:"phone" binding:"omitempty,phone"`
	Address          string     `json:"address" binding:"max=200"`
	Gender           Gender     `json:"gender" binding:"required,oneof=MALE FEMALE OTHER"`
	EmergencyContact string     `json:"emergencyContact" binding:"max=100"`
	EmergencyPhone   string     `json:"emergencyPhone" binding:"omitempty,phone"`
	UserID           *uuid.UUID `json:"userId"`
}

// UpdatePatientRequest applies only the fields that are set.
type UpdatePatientRequest struct {
	FullName         *string    `json:"fullName" binding:"omitempty,min=3,max=100,personname"`
	BirthDate        *Date      `json:"birthDate"`
	Phone            *string    `json:"phone" binding:"omitempty,phone"`
	Address          *string    `json:"address" binding:"omitempty,max=200"`
	Gender           *Gender    `json:"gender" binding:"omitempty,oneof=MALE FEMALE OTHER"`
	EmergencyContact *string    `json:"emergencyContact" binding:"omitempty,max=100"`
	EmergencyPhone   *string    `json:"emergencyPhone" binding:"omitempty,phone"`
	Active           *bool      `json:"active"`
	UserID           *uuid.UUID `json:"userId"`
	Version          *int64     `json:"version"`
}

// PatientListParams are the query parameters of the filtered patient page.
type PatientListParams struct {
	Pagination
	FullName       string `form:"fullName"`
	DocumentNumber string `form:"documentNumber"`
	Phone          string `form:"phone"`
	Gender         string `form:"gender"`
	BirthDateFrom  string `form:"birthDateFrom"`
	BirthDateTo    string `form:"birthDateTo"`
	Active         string `form:"active"`
}
