package db

import (
	"fmt"

	"github.com/skshohagmiah/docquery/internal/document"
	"github.com/skshohagmiah/docquery/internal/query"
)

// QueryBuilder provides a fluent interface for building queries
type QueryBuilder struct {
	collection string
	coll       *Collection
	filter     *query.FilterBuilder
	opts       FindOptions
}

// NewQueryBuilder creates a new query builder for a collection
func NewQueryBuilder(collection string) *QueryBuilder {
	return &QueryBuilder{
		collection: collection,
		filter:     query.NewFilter(),
	}
}

// Where adds a filter condition
func (qb *QueryBuilder) Where(field string, op query.Operator, value interface{}) *QueryBuilder {
	qb.filter.Where(field, op, value)
	return qb
}

// WhereEq adds an equality filter (shorthand)
func (qb *QueryBuilder) WhereEq(field string, value interface{}) *QueryBuilder {
	return qb.Where(field, query.OpEq, value)
}

// WhereNe adds a not-equal filter (shorthand)
func (qb *QueryBuilder) WhereNe(field string, value interface{}) *QueryBuilder {
	return qb.Where(field, query.OpNe, value)
}

// WhereGt adds a greater-than filter (shorthand)
func (qb *QueryBuilder) WhereGt(field string, value interface{}) *QueryBuilder {
	return qb.Where(field, query.OpGt, value)
}

// WhereGte adds a greater-than-or-equal filter (shorthand)
func (qb *QueryBuilder) WhereGte(field string, value interface{}) *QueryBuilder {
	return qb.Where(field, query.OpGte, value)
}

// WhereLt adds a less-than filter (shorthand)
func (qb *QueryBuilder) WhereLt(field string, value interface{}) *QueryBuilder {
	return qb.Where(field, query.OpLt, value)
}

// WhereLte adds a less-than-or-equal filter (shorthand)
func (qb *QueryBuilder) WhereLte(field string, value interface{}) *QueryBuilder {
	return qb.Where(field, query.OpLte, value)
}

// WhereIn adds an in-array filter (shorthand)
func (qb *QueryBuilder) WhereIn(field string, values ...interface{}) *QueryBuilder {
	qb.filter.In(field, values...)
	return qb
}

// WhereRegex adds a pattern filter
func (qb *QueryBuilder) WhereRegex(field, pattern, options string) *QueryBuilder {
	qb.filter.Regex(field, pattern, options)
	return qb
}

// Or adds a disjunction of sub-filters
func (qb *QueryBuilder) Or(filters ...query.Filter) *QueryBuilder {
	qb.filter.Or(filters...)
	return qb
}

// OrderBy appends a sort key
func (qb *QueryBuilder) OrderBy(field, direction string) *QueryBuilder {
	qb.opts.Sort = append(qb.opts.Sort, SortOption{
		Field:     field,
		Direction: direction,
	})
	return qb
}

// OrderByAsc sorts by field in ascending order (shorthand)
func (qb *QueryBuilder) OrderByAsc(field string) *QueryBuilder {
	return qb.OrderBy(field, SortAsc)
}

// OrderByDesc sorts by field in descending order (shorthand)
func (qb *QueryBuilder) OrderByDesc(field string) *QueryBuilder {
	return qb.OrderBy(field, SortDesc)
}

// Skip sets the number of documents to skip
func (qb *QueryBuilder) Skip(n int) *QueryBuilder {
	qb.opts.Skip = n
	return qb
}

// Limit sets the maximum number of documents to return
func (qb *QueryBuilder) Limit(n int) *QueryBuilder {
	qb.opts.Limit = Int(n)
	return qb
}

// Take is an alias for Limit (Prisma-style)
func (qb *QueryBuilder) Take(n int) *QueryBuilder {
	return qb.Limit(n)
}

// Select restricts results to the given fields
func (qb *QueryBuilder) Select(fields ...string) *QueryBuilder {
	return qb.project(fields, 1)
}

// Exclude removes the given fields from results
func (qb *QueryBuilder) Exclude(fields ...string) *QueryBuilder {
	return qb.project(fields, 0)
}

func (qb *QueryBuilder) project(fields []string, flag int) *QueryBuilder {
	if qb.opts.Projection == nil {
		qb.opts.Projection = make(map[string]interface{}, len(fields))
	}
	for _, f := range fields {
		qb.opts.Projection[f] = flag
	}
	return qb
}

// Build returns the filter and FindOptions for this query
func (qb *QueryBuilder) Build() (query.Filter, FindOptions) {
	return qb.filter.Build(), qb.opts
}

// All runs the query against the bound collection
func (qb *QueryBuilder) All() ([]document.Document, error) {
	if qb.coll == nil {
		return nil, fmt.Errorf("%w: query is not bound to a collection", ErrInvalidCollection)
	}
	filter, opts := qb.Build()
	return qb.coll.Find(filter, opts)
}

// First returns the first result of the query, or nil
func (qb *QueryBuilder) First() (document.Document, error) {
	if qb.coll == nil {
		return nil, fmt.Errorf("%w: query is not bound to a collection", ErrInvalidCollection)
	}
	filter, opts := qb.Build()
	return qb.coll.FindOne(filter, opts)
}

// Count counts the documents matching the query filter
func (qb *QueryBuilder) Count() (int64, error) {
	if qb.coll == nil {
		return 0, fmt.Errorf("%w: query is not bound to a collection", ErrInvalidCollection)
	}
	return qb.coll.CountDocuments(qb.filter.Build())
}

// String returns a string representation of the query
func (qb *QueryBuilder) String() string {
	limit := -1
	if qb.opts.Limit != nil {
		limit = *qb.opts.Limit
	}
	return fmt.Sprintf("Query{collection=%s, %s, skip=%d, limit=%d}",
		qb.collection, qb.filter, qb.opts.Skip, limit)
}
