package domain

import "sort"

type FilterOperator string

const (
	OpIn          FilterOperator = "in"
	OpGreaterThan FilterOperator = "gt"
	OpLessThan    FilterOperator = "lt"
)

// NumericRange is an open-ended range. A nil bound is unbounded.
type NumericRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// FilterSpec is the per-request constraint set derived from a query. Values
// holds categorical fields, Ranges numeric ones.
type FilterSpec struct {
	Values map[string][]string
	Ranges map[string]NumericRange
}

func (s *FilterSpec) IsEmpty() bool {
	return s == nil || (len(s.Values) == 0 && len(s.Ranges) == 0)
}

func (s *FilterSpec) Fields() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Values)+len(s.Ranges))
	for field := range s.Values {
		out = append(out, field)
	}
	for field := range s.Ranges {
		if _, dup := s.Values[field]; dup {
			continue
		}
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}

// Retain returns a copy holding only the fields keep accepts.
func (s *FilterSpec) Retain(keep func(field string) bool) *FilterSpec {
	out := &FilterSpec{
		Values: make(map[string][]string),
		Ranges: make(map[string]NumericRange),
	}
	if s == nil {
		return out
	}
	for field, values := range s.Values {
		if keep(field) {
			out.Values[field] = append([]string(nil), values...)
		}
	}
	for field, rng := range s.Ranges {
		if keep(field) {
			out.Ranges[field] = rng
		}
	}
	return out
}

// Clauses translates the spec into index clauses. Fields listed in order come
// first, the rest follow alphabetically. A range with both bounds open yields
// no clause.
func (s *FilterSpec) Clauses(order []string) []FilterClause {
	if s.IsEmpty() {
		return nil
	}

	seen := make(map[string]struct{})
	fields := make([]string, 0, len(s.Values)+len(s.Ranges))
	for _, field := range order {
		if _, ok := seen[field]; ok {
			continue
		}
		if s.has(field) {
			seen[field] = struct{}{}
			fields = append(fields, field)
		}
	}
	for _, field := range s.Fields() {
		if _, ok := seen[field]; !ok {
			fields = append(fields, field)
		}
	}

	clauses := make([]FilterClause, 0, len(fields))
	for _, field := range fields {
		if values, ok := s.Values[field]; ok && len(values) > 0 {
			clauses = append(clauses, FilterClause{
				Field:    field,
				Operator: OpIn,
				Values:   append([]string(nil), values...),
			})
		}
		if rng, ok := s.Ranges[field]; ok {
			if rng.Min != nil && *rng.Min > 0 {
				clauses = append(clauses, FilterClause{Field: field, Operator: OpGreaterThan, Number: *rng.Min})
			}
			if rng.Max != nil {
				clauses = append(clauses, FilterClause{Field: field, Operator: OpLessThan, Number: *rng.Max})
			}
		}
	}
	return clauses
}

func (s *FilterSpec) has(field string) bool {
	if _, ok := s.Values[field]; ok {
		return true
	}
	_, ok := s.Ranges[field]
	return ok
}

type FilterClause struct {
	Field    string
	Operator FilterOperator
	Values   []string
	Number   float64
}

// FilterExpression is either a single clause or a conjunction of two or more.
// A nil *FilterExpression means "no filter", which is not the same as a filter
// that excludes everything.
type FilterExpression struct {
	Clause *FilterClause
	And    []FilterClause
}

func NewFilterExpression(clauses []FilterClause) *FilterExpression {
	switch len(clauses) {
	case 0:
		return nil
	case 1:
		c := clauses[0]
		return &FilterExpression{Clause: &c}
	default:
		return &FilterExpression{And: append([]FilterClause(nil), clauses...)}
	}
}

func (e *FilterExpression) Clauses() []FilterClause {
	if e == nil {
		return nil
	}
	if e.Clause != nil {
		return []FilterClause{*e.Clause}
	}
	return e.And
}

// Key identifies the expression so identical relaxation steps can be skipped.
func (e *FilterExpression) Key() string {
	if e == nil {
		return ""
	}
	key := ""
	for _, c := range e.Clauses() {
		key += c.Field + "|" + string(c.Operator) + ";"
	}
	return key
}
