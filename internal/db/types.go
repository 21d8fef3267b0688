package db

import (
	"errors"
	"fmt"

	"github.com/skshohagmiah/docquery/internal/document"
)

// Common errors
var (
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrInvalidCollection = errors.New("invalid collection")
	ErrCollectionExists  = errors.New("collection already exists")
	ErrInvalidDocument   = errors.New("invalid document")
	ErrValidation        = errors.New("document failed validation")
	ErrCollectionDropped = errors.New("collection dropped")
)

// Document represents a single document in a collection
type Document = document.Document

// FindOptions represents options for find operations
type FindOptions struct {
	// Projection maps field paths to 1 (include) or 0 (exclude).
	Projection map[string]interface{}
	Sort       []SortOption
	Skip       int
	// Limit caps the result size. nil means no limit and 0 an empty result.
	Limit *int
}

// SortOption represents sorting configuration
type SortOption struct {
	Field     string
	Direction string // "asc" or "desc"
}

// UpdateOptions represents options for update and replace operations
type UpdateOptions struct {
	Upsert bool
}

// UpdateResult reports the outcome of an update
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedCount int64
	UpsertedID    string
}

// DeleteResult reports the outcome of a delete
type DeleteResult struct {
	DeletedCount int64
}

// CollectionOptions configures a collection at creation time
type CollectionOptions struct {
	Validator Validator
}

// BulkInsertError is returned by InsertMany when an entry fails. Entries
// before Index were inserted.
type BulkInsertError struct {
	Index       int
	InsertedIDs []string
	Err         error
}

func (e *BulkInsertError) Error() string {
	return fmt.Sprintf("insert of document %d failed after %d inserted: %v", e.Index, len(e.InsertedIDs), e.Err)
}

func (e *BulkInsertError) Unwrap() error {
	return e.Err
}

// Sort direction constants
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Int returns a pointer to n, for FindOptions.Limit.
func Int(n int) *int {
	return &n
}
