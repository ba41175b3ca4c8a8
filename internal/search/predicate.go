// Package search builds typed patient filters, sort orders and page envelopes
// that store adapters translate into their own query form.
package search

import (
	"strings"

	"github.com/vitalapp/clinic-api/internal/model"
)

// Field names a filterable or sortable patient attribute.
type Field string

const (
	FieldID             Field = "id"
	FieldFullName       Field = "fullName"
	FieldDocumentNumber Field = "documentNumber"
	FieldBirthDate      Field = "birthDate"
	FieldPhone          Field = "phone"
	FieldAddress        Field = "address"
	FieldGender         Field = "gender"
	FieldActive         Field = "active"
)

// Op is a comparison applied by a clause.
type Op int

const (
	// OpContainsFold matches a case-insensitive substring.
	OpContainsFold Op = iota
	// OpContains matches a case-sensitive substring.
	OpContains
	OpEquals
	// OpGTE and OpLTE are inclusive bounds.
	OpGTE
	OpLTE
)

// Clause is one typed condition. Value holds a string, model.Gender,
// model.Date or bool depending on Field.
type Clause struct {
	Field Field
	Op    Op
	Value interface{}
}

// Predicate is a conjunction of clauses. The empty predicate matches every
// patient.
type Predicate []Clause

// Match evaluates the predicate against p.
func (pr Predicate) Match(p *model.Patient) bool {
	for _, c := range pr {
		if !c.Match(p) {
			return false
		}
	}
	return true
}

// Match evaluates a single clause against p. Unknown fields or mistyped
// values never match.
func (c Clause) Match(p *model.Patient) bool {
	switch c.Field {
	case FieldFullName:
		return matchString(p.FullName, c)
	case FieldDocumentNumber:
		return matchString(p.DocumentNumber, c)
	case FieldPhone:
		return matchString(p.Phone, c)
	case FieldAddress:
		return matchString(p.Address, c)
	case FieldGender:
		g, ok := c.Value.(model.Gender)
		return ok && c.Op == OpEquals && p.Gender == g
	case FieldActive:
		b, ok := c.Value.(bool)
		return ok && c.Op == OpEquals && p.Active == b
	case FieldBirthDate:
		d, ok := c.Value.(model.Date)
		if !ok || p.BirthDate == nil {
			return false
		}
		switch c.Op {
		case OpGTE:
			return !p.BirthDate.Before(d)
		case OpLTE:
			return !p.BirthDate.After(d)
		case OpEquals:
			return p.BirthDate.Equal(d.Time)
		}
	}
	return false
}

func matchString(actual string, c Clause) bool {
	want, ok := c.Value.(string)
	if !ok {
		return false
	}
	switch c.Op {
	case OpContainsFold:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(want))
	case OpContains:
		return strings.Contains(actual, want)
	case OpEquals:
		return actual == want
	}
	return false
}

// PatientPredicateBuilder accumulates patient filter clauses. Blank strings
// and nil pointers add nothing.
type PatientPredicateBuilder struct {
	clauses Predicate
}

func NewPatientPredicate() *PatientPredicateBuilder {
	return &PatientPredicateBuilder{}
}

func (b *PatientPredicateBuilder) add(f Field, op Op, v interface{}) *PatientPredicateBuilder {
	b.clauses = append(b.clauses, Clause{Field: f, Op: op, Value: v})
	return b
}

// FullName adds a case-insensitive substring match.
func (b *PatientPredicateBuilder) FullName(s string) *PatientPredicateBuilder {
	if strings.TrimSpace(s) == "" {
		return b
	}
	return b.add(FieldFullName, OpContainsFold, s)
}

// DocumentNumber adds an exact match.
func (b *PatientPredicateBuilder) DocumentNumber(s string) *PatientPredicateBuilder {
	if strings.TrimSpace(s) == "" {
		return b
	}
	return b.add(FieldDocumentNumber, OpEquals, s)
}

// Phone adds a case-sensitive substring match.
func (b *PatientPredicateBuilder) Phone(s string) *PatientPredicateBuilder {
	if strings.TrimSpace(s) == "" {
		return b
	}
	return b.add(FieldPhone, OpContains, s)
}

func (b *PatientPredicateBuilder) Gender(g *model.Gender) *PatientPredicateBuilder {
	if g == nil {
		return b
	}
	return b.add(FieldGender, OpEquals, *g)
}

func (b *PatientPredicateBuilder) BirthDateFrom(d *model.Date) *PatientPredicateBuilder {
	if d == nil {
		return b
	}
	return b.add(FieldBirthDate, OpGTE, *d)
}

func (b *PatientPredicateBuilder) BirthDateTo(d *model.Date) *PatientPredicateBuilder {
	if d == nil {
		return b
	}
	return b.add(FieldBirthDate, OpLTE, *d)
}

func (b *PatientPredicateBuilder) Active(active *bool) *PatientPredicateBuilder {
	if active == nil {
		return b
	}
	return b.add(FieldActive, OpEquals, *active)
}

// Build returns a copy of the accumulated predicate.
func (b *PatientPredicateBuilder) Build() Predicate {
	out := make(Predicate, len(b.clauses))
	copy(out, b.clauses)
	return out
}

// PatientFilter is the parsed set of optional patient filters.
type PatientFilter struct {
	FullName       string
	DocumentNumber string
	Phone          string
	Gender         *model.Gender
	BirthDateFrom  *model.Date
	BirthDateTo    *model.Date
	Active         *bool
}

// FromFilter builds the predicate for every filter that is present.
func FromFilter(f PatientFilter) Predicate {
	return NewPatientPredicate().
		FullName(f.FullName).
		DocumentNumber(f.DocumentNumber).
		Phone(f.Phone).
		Gender(f.Gender).
		BirthDateFrom(f.BirthDateFrom).
		BirthDateTo(f.BirthDateTo).
		Active(f.Active).
		Build()
}
