package postgres

import (
	"fmt"
	"strings"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/search"
)

// patientColumns maps every filterable and sortable field to its column.
// Nothing outside this map ever reaches SQL text.
var patientColumns = map[search.Field]string{
	search.FieldID:             "id",
	search.FieldFullName:       "full_name",
	search.FieldDocumentNumber: "document_number",
	search.FieldBirthDate:      "birth_date",
	search.FieldPhone:          "phone",
	search.FieldAddress:        "address",
	search.FieldGender:         "gender",
	search.FieldActive:         "active",
}

// whereBuilder accumulates positional WHERE fragments.
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

// add appends a fragment whose single placeholder is written as %s.
func (w *whereBuilder) add(format string, arg interface{}) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(format, fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// next is the index of the next placeholder.
func (w *whereBuilder) next() int {
	return len(w.args) + 1
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// renderPatientPredicate translates a predicate into a WHERE clause.
func renderPatientPredicate(pred search.Predicate) (*whereBuilder, error) {
	w := &whereBuilder{}
	for _, c := range pred {
		col, ok := patientColumns[c.Field]
		if !ok {
			return nil, fmt.Errorf("unsupported patient filter field %q", c.Field)
		}

		value := c.Value
		switch v := value.(type) {
		case model.Gender:
			value = string(v)
		case model.Date:
			value = v.Time
		}

		switch c.Op {
		case search.OpContainsFold:
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("field %q needs a string value", c.Field)
			}
			w.add("LOWER("+col+") LIKE %s ESCAPE '\\'", containsPattern(strings.ToLower(s)))
		case search.OpContains:
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("field %q needs a string value", c.Field)
			}
			w.add(col+" LIKE %s ESCAPE '\\'", containsPattern(s))
		case search.OpEquals:
			w.add(col+" = %s", value)
		case search.OpGTE:
			w.add(col+" >= %s", value)
		case search.OpLTE:
			w.add(col+" <= %s", value)
		default:
			return nil, fmt.Errorf("unsupported operator %d", c.Op)
		}
	}
	return w, nil
}

// textColumns sort byte-wise so the order matches search.Compare whatever
// the database collation is.
var textColumns = map[string]bool{
	"full_name":       true,
	"document_number": true,
	"phone":           true,
	"address":         true,
	"gender":          true,
}

// patientOrderBy renders an ORDER BY clause with an id tiebreaker. Nulls sort
// first ascending and last descending.
func patientOrderBy(s search.Sort) string {
	col, ok := patientColumns[s.Field]
	if !ok {
		col = "id"
	}
	dir := "ASC NULLS FIRST"
	if s.Descending() {
		dir = "DESC NULLS LAST"
	}
	key := col
	if textColumns[col] {
		key += ` COLLATE "C"`
	}
	order := " ORDER BY " + key + " " + dir
	if col != "id" {
		order += ", id ASC"
	}
	return order
}
