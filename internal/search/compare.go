package search

import (
	"bytes"
	"strings"

	"github.com/vitalapp/clinic-api/internal/model"
)

// Compare orders two patients by field, returning -1, 0 or 1. Missing birth
// dates sort first. Unknown fields compare by id.
func Compare(a, b *model.Patient, f Field) int {
	switch f {
	case FieldFullName:
		return strings.Compare(a.FullName, b.FullName)
	case FieldDocumentNumber:
		return strings.Compare(a.DocumentNumber, b.DocumentNumber)
	case FieldPhone:
		return strings.Compare(a.Phone, b.Phone)
	case FieldAddress:
		return strings.Compare(a.Address, b.Address)
	case FieldGender:
		return strings.Compare(string(a.Gender), string(b.Gender))
	case FieldActive:
		switch {
		case a.Active == b.Active:
			return 0
		case !a.Active:
			return -1
		default:
			return 1
		}
	case FieldBirthDate:
		switch {
		case a.BirthDate == nil && b.BirthDate == nil:
			return 0
		case a.BirthDate == nil:
			return -1
		case b.BirthDate == nil:
			return 1
		}
		return a.BirthDate.Compare(b.BirthDate.Time)
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}
