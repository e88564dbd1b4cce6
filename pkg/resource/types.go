// Package resource implements generic CRUD controllers over typed record
// collections: query-parameter translation, filtered and paginated listing,
// foreign-key-scoped sub-resource listing, and free-text search.
package resource

import (
	"context"
	"time"
)

// Record is a single row of a record type, keyed by field name.
// Values are JSON-compatible: string, int64, float64, bool, nested maps.
type Record map[string]any

// Op identifies a filter operator.
type Op string

// Filter operators.
const (
	// OpEq matches records whose field equals the value exactly.
	OpEq Op = "eq"
	// OpLike matches records whose field contains the value as a
	// case-insensitive substring.
	OpLike Op = "like"
)

// Filter is a single field predicate.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Sort describes the requested ordering.
// Dir is "asc" or "desc"; unrecognized values are passed through and the
// store decides how to treat them.
type Sort struct {
	Field string
	Dir   string
}

// Page describes the requested pagination window (1-based).
type Page struct {
	Page  int
	Limit int
}

// Skip returns the number of records to skip for this window.
func (p Page) Skip() int {
	return (p.Page - 1) * p.Limit
}

// Query is the normalized descriptor produced by query translation.
// Filters combine with AND; Search is an OR-group that is ANDed with
// Filters when present.
type Query struct {
	Filters []Filter
	Search  []Filter
	Sort    Sort
	Page    Page
	Delay   time.Duration
}

// Relation names an expandable association resolved at read time into a
// nested sub-object on the parent record.
type Relation struct {
	// Name is the key the nested object is attached under, e.g. "user".
	Name string
	// Table is the related record type's table, e.g. "users".
	Table string
	// FK is the local field holding the related record's id, e.g. "userId".
	FK string
	// Fields is the projection of the related record, e.g. id, name, username.
	Fields []string
}

// Store is the record-store capability the controller executes against.
// Implementations provide single-operation atomicity; the controller opens
// no transactions and performs no retries.
type Store interface {
	// Find executes a filtered, sorted, paginated read with relation expansion.
	Find(ctx context.Context, table string, q Query, expand []Relation) ([]Record, error)

	// Count returns the number of records matching the filter portion of q,
	// ignoring pagination.
	Count(ctx context.Context, table string, q Query) (int, error)

	// FindOne looks up a single record by id with relation expansion.
	// Returns ErrNotFound if no record has the given id.
	FindOne(ctx context.Context, table string, id int64, expand []Relation) (Record, error)

	// Insert creates a new record and returns it with the server-assigned
	// id and timestamps.
	Insert(ctx context.Context, table string, data Record) (Record, error)

	// UpdateByID applies a partial-merge update: fields present in data
	// overwrite, absent fields are untouched. Returns ErrNotFound if no
	// record has the given id.
	UpdateByID(ctx context.Context, table string, id int64, data Record) (Record, error)

	// DeleteByID removes a record. Returns ErrNotFound if no record has
	// the given id.
	DeleteByID(ctx context.Context, table string, id int64) error
}

// Pagination is the metadata block attached to list responses.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// ListResult is the response envelope for list and list-related operations.
type ListResult struct {
	Data       []Record   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// SearchResult is the response envelope for resource-bound search.
// The shape is intentionally different from ListResult and must not be
// unified with it.
type SearchResult struct {
	Query      string   `json:"query"`
	Total      int      `json:"total"`
	Results    []Record `json:"results"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalPages int      `json:"totalPages"`
	HasNext    bool     `json:"hasNext"`
	HasPrev    bool     `json:"hasPrev"`
}
