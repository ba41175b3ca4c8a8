package search

import (
	"strconv"
	"strings"

	"github.com/vitalapp/clinic-api/internal/model"
	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
)

// PatientQuery is a complete, typed request for one page of patients.
type PatientQuery struct {
	Page          int
	Size          int
	SortBy        string
	SortDirection string
	Filter        PatientFilter
}

// ParsePatientQuery converts raw query parameters into a PatientQuery.
// Malformed gender, active or date values are validation errors.
func ParsePatientQuery(p model.PatientListParams) (PatientQuery, error) {
	q := PatientQuery{
		Page:          p.Page,
		Size:          p.Size,
		SortBy:        p.SortBy,
		SortDirection: p.SortDirection,
		Filter: PatientFilter{
			FullName:       p.FullName,
			DocumentNumber: p.DocumentNumber,
			Phone:          p.Phone,
		},
	}
	details := map[string]string{}

	if s := strings.TrimSpace(p.Gender); s != "" {
		g := model.Gender(strings.ToUpper(s))
		if !g.Valid() {
			details["gender"] = "must be one of MALE FEMALE OTHER"
		} else {
			q.Filter.Gender = &g
		}
	}
	if s := strings.TrimSpace(p.Active); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			details["active"] = "must be true or false"
		} else {
			q.Filter.Active = &b
		}
	}
	if s := strings.TrimSpace(p.BirthDateFrom); s != "" {
		d, err := model.ParseDate(s)
		if err != nil {
			details["birthDateFrom"] = "must be a date formatted " + model.DateLayout
		} else {
			q.Filter.BirthDateFrom = &d
		}
	}
	if s := strings.TrimSpace(p.BirthDateTo); s != "" {
		d, err := model.ParseDate(s)
		if err != nil {
			details["birthDateTo"] = "must be a date formatted " + model.DateLayout
		} else {
			q.Filter.BirthDateTo = &d
		}
	}

	if len(details) > 0 {
		return PatientQuery{}, apperrors.NewValidation("invalid patient filters", details)
	}
	return q, nil
}
