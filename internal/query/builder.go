package query

import (
	"fmt"

	"github.com/skshohagmiah/docquery/internal/document"
)

// FilterBuilder provides a fluent interface for building filter expressions
type FilterBuilder struct {
	conds   []document.Document
	clauses map[string]document.Document
}

// NewFilter creates an empty filter builder
func NewFilter() *FilterBuilder {
	return &FilterBuilder{clauses: make(map[string]document.Document)}
}

// Where adds a condition on field. Conditions on the same field are merged
// into one operator map.
func (fb *FilterBuilder) Where(field string, op Operator, value interface{}) *FilterBuilder {
	clause, ok := fb.clauses[field]
	if !ok {
		clause = make(document.Document)
		fb.clauses[field] = clause
	}
	clause[string(op)] = value
	return fb
}

// Eq adds an equality filter (shorthand)
func (fb *FilterBuilder) Eq(field string, value interface{}) *FilterBuilder {
	return fb.Where(field, OpEq, value)
}

// Ne adds a not-equal filter (shorthand)
func (fb *FilterBuilder) Ne(field string, value interface{}) *FilterBuilder {
	return fb.Where(field, OpNe, value)
}

// Gt adds a greater-than filter (shorthand)
func (fb *FilterBuilder) Gt(field string, value interface{}) *FilterBuilder {
	return fb.Where(field, OpGt, value)
}

// Gte adds a greater-than-or-equal filter (shorthand)
func (fb *FilterBuilder) Gte(field string, value interface{}) *FilterBuilder {
	return fb.Where(field, OpGte, value)
}

// Lt adds a less-than filter (shorthand)
func (fb *FilterBuilder) Lt(field string, value interface{}) *FilterBuilder {
	return fb.Where(field, OpLt, value)
}

// Lte adds a less-than-or-equal filter (shorthand)
func (fb *FilterBuilder) Lte(field string, value interface{}) *FilterBuilder {
	return fb.Where(field, OpLte, value)
}

// In adds an in-array filter (shorthand)
func (fb *FilterBuilder) In(field string, values ...interface{}) *FilterBuilder {
	return fb.Where(field, OpIn, values)
}

// Nin adds a not-in-array filter (shorthand)
func (fb *FilterBuilder) Nin(field string, values ...interface{}) *FilterBuilder {
	return fb.Where(field, OpNin, values)
}

// Exists adds a field presence filter
func (fb *FilterBuilder) Exists(field string, exists bool) *FilterBuilder {
	return fb.Where(field, OpExists, exists)
}

// Regex adds a pattern filter. options may contain i, m and s.
func (fb *FilterBuilder) Regex(field, pattern, options string) *FilterBuilder {
	fb.Where(field, OpRegex, pattern)
	if options != "" {
		fb.Where(field, OpOptions, options)
	}
	return fb
}

// Or adds a disjunction of sub-filters
func (fb *FilterBuilder) Or(filters ...Filter) *FilterBuilder {
	return fb.logical(OpOr, filters)
}

// Nor adds a "none of" clause over sub-filters
func (fb *FilterBuilder) Nor(filters ...Filter) *FilterBuilder {
	return fb.logical(OpNor, filters)
}

// And adds an explicit conjunction of sub-filters
func (fb *FilterBuilder) And(filters ...Filter) *FilterBuilder {
	return fb.logical(OpAnd, filters)
}

func (fb *FilterBuilder) logical(op Operator, filters []Filter) *FilterBuilder {
	list := make([]interface{}, len(filters))
	for i, f := range filters {
		list[i] = f
	}
	fb.conds = append(fb.conds, document.Document{string(op): list})
	return fb
}

// Build returns the filter expression
func (fb *FilterBuilder) Build() Filter {
	out := make(Filter, len(fb.clauses))
	for field, clause := range fb.clauses {
		out[field] = clause.Clone()
	}
	switch len(fb.conds) {
	case 0:
	case 1:
		for k, v := range fb.conds[0] {
			out[k] = v
		}
	default:
		// several logical clauses of the same kind cannot share one key
		list := make([]interface{}, len(fb.conds))
		for i, c := range fb.conds {
			list[i] = c
		}
		out[string(OpAnd)] = list
	}
	return out
}

// String returns a string representation of the filter
func (fb *FilterBuilder) String() string {
	return fmt.Sprintf("Filter{fields=%d, logical=%d}", len(fb.clauses), len(fb.conds))
}

// UpdateBuilder provides a fluent interface for building update expressions
type UpdateBuilder struct {
	ops map[string]document.Document
}

// NewUpdate creates a new update builder
func NewUpdate() *UpdateBuilder {
	return &UpdateBuilder{ops: make(map[string]document.Document)}
}

func (ub *UpdateBuilder) add(op, field string, value interface{}) *UpdateBuilder {
	fields, ok := ub.ops[op]
	if !ok {
		fields = make(document.Document)
		ub.ops[op] = fields
	}
	fields[field] = value
	return ub
}

// Set sets a field value
func (ub *UpdateBuilder) Set(field string, value interface{}) *UpdateBuilder {
	return ub.add(OpSet, field, value)
}

// SetMany sets multiple field values
func (ub *UpdateBuilder) SetMany(fields document.Document) *UpdateBuilder {
	for k, v := range fields {
		ub.Set(k, v)
	}
	return ub
}

// Unset removes a field
func (ub *UpdateBuilder) Unset(field string) *UpdateBuilder {
	return ub.add(OpUnset, field, "")
}

// Inc adds delta to a numeric field
func (ub *UpdateBuilder) Inc(field string, delta interface{}) *UpdateBuilder {
	return ub.add(OpInc, field, delta)
}

// Push appends a value to an array field
func (ub *UpdateBuilder) Push(field string, value interface{}) *UpdateBuilder {
	return ub.add(OpPush, field, value)
}

// PushEach appends values in order, then keeps the first slice elements
// (positive) or the last -slice elements (negative). A nil slice keeps all.
func (ub *UpdateBuilder) PushEach(field string, values []interface{}, slice *int) *UpdateBuilder {
	mod := document.Document{ModEach: values}
	if slice != nil {
		mod[ModSlice] = *slice
	}
	return ub.add(OpPush, field, mod)
}

// AddToSet appends a value unless an equal element exists
func (ub *UpdateBuilder) AddToSet(field string, value interface{}) *UpdateBuilder {
	return ub.add(OpAddToSet, field, value)
}

// Pull removes matching elements from an array field
func (ub *UpdateBuilder) Pull(field string, match interface{}) *UpdateBuilder {
	return ub.add(OpPull, field, match)
}

// PopFirst removes the first element of an array field
func (ub *UpdateBuilder) PopFirst(field string) *UpdateBuilder {
	return ub.add(OpPop, field, -1)
}

// PopLast removes the last element of an array field
func (ub *UpdateBuilder) PopLast(field string) *UpdateBuilder {
	return ub.add(OpPop, field, 1)
}

// Build returns the update expression
func (ub *UpdateBuilder) Build() Update {
	out := make(Update, len(ub.ops))
	for op, fields := range ub.ops {
		out[op] = fields.Clone()
	}
	return out
}
