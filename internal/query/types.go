// Package query implements the filter and update mini-language of the
// document store.
//
// Filters are plain maps such as {"anneePublication": {"$gt": 1945}} and
// are compiled into a tree of matchers before evaluation, so an unknown
// operator is reported even when no document is scanned. Updates such as
// {"$set": {"disponible": false}} are applied to a copy of the document.
package query

import (
	"errors"

	"github.com/skshohagmiah/docquery/internal/document"
)

// Common errors
var (
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrInvalidFieldPath    = document.ErrInvalidFieldPath
	ErrBadValue            = errors.New("bad value")
	ErrConflictingUpdate   = errors.New("conflicting update paths")
	ErrImmutableField      = errors.New("immutable field")
)

// Filter is a filter expression: field paths or logical operators mapped to
// predicates.
type Filter = document.Document

// Update is an update expression: update operators mapped to {path: operand}.
type Update = document.Document

// Operator represents a filter operator (e.g., $eq, $gt, $in).
type Operator string

// Comparison and element operators
const (
	OpEq        Operator = "$eq"
	OpNe        Operator = "$ne"
	OpGt        Operator = "$gt"
	OpGte       Operator = "$gte"
	OpLt        Operator = "$lt"
	OpLte       Operator = "$lte"
	OpIn        Operator = "$in"
	OpNin       Operator = "$nin"
	OpExists    Operator = "$exists"
	OpRegex     Operator = "$regex"
	OpOptions   Operator = "$options"
	OpAll       Operator = "$all"
	OpSize      Operator = "$size"
	OpElemMatch Operator = "$elemMatch"
	OpNot       Operator = "$not"
)

// Logical operators
const (
	OpAnd Operator = "$and"
	OpOr  Operator = "$or"
	OpNor Operator = "$nor"
)

// Update operators
const (
	OpSet      = "$set"
	OpUnset    = "$unset"
	OpInc      = "$inc"
	OpPush     = "$push"
	OpPull     = "$pull"
	OpAddToSet = "$addToSet"
	OpPop      = "$pop"
)

// Update modifiers
const (
	ModEach  = "$each"
	ModSlice = "$slice"
)

func isOperatorKey(k string) bool {
	return len(k) > 0 && k[0] == '$'
}

// isOperatorMap reports whether every key of m is an operator. An empty map
// is a literal.
func isOperatorMap(m document.Document) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !isOperatorKey(k) {
			return false
		}
	}
	return true
}

func hasOperatorKey(m document.Document) bool {
	for k := range m {
		if isOperatorKey(k) {
			return true
		}
	}
	return false
}
