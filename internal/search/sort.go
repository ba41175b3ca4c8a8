package search

import "strings"

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

var sortable = map[Field]struct{}{
	FieldID:             {},
	FieldFullName:       {},
	FieldDocumentNumber: {},
	FieldBirthDate:      {},
	FieldPhone:          {},
	FieldAddress:        {},
	FieldGender:         {},
	FieldActive:         {},
}

// Sort is a resolved, allowlisted ordering.
type Sort struct {
	Field     Field
	Direction Direction
}

// Descending reports whether the sort is DESC.
func (s Sort) Descending() bool { return s.Direction == Desc }

// ResolveSortField returns name when it is sortable and id otherwise.
func ResolveSortField(name string) Field {
	if _, ok := sortable[Field(name)]; ok {
		return Field(name)
	}
	return FieldID
}

// ResolveDirection maps "desc" in any case to Desc and everything else to Asc.
func ResolveDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

func NewSort(field, direction string) Sort {
	return Sort{Field: ResolveSortField(field), Direction: ResolveDirection(direction)}
}
