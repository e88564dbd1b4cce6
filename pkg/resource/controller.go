package resource

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"
)

// Controller implements the six generic operations for one record type.
// It carries no state across calls; every call is self-contained given the
// current store contents, so a single Controller is safe for concurrent
// use by many requests.
type Controller struct {
	schema *Schema
	store  Store
	log    *slog.Logger

	// sleep implements the _delay suspension; injectable for tests.
	sleep func(time.Duration)
}

// NewController binds a record type to a store.
func NewController(s *Schema, store Store, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		schema: s,
		store:  store,
		log:    log,
		sleep:  time.Sleep,
	}
}

// Schema returns the record type this controller is bound to.
func (c *Controller) Schema() *Schema { return c.schema }

// List returns a filtered, sorted, paginated page of records together
// with pagination metadata computed from an independent count query.
// An empty page is a valid, non-error response.
func (c *Controller) List(ctx context.Context, values url.Values) (*ListResult, error) {
	q := Translate(values, c.schema)
	c.delay(q.Delay)
	return c.execList(ctx, c.schema, q)
}

// ListRelated lists child records scoped to a parent: the filter set is
// seeded with an implicit fk = parentID constraint that query parameters
// cannot override.
func (c *Controller) ListRelated(ctx context.Context, parentID string, child *Schema, fk string, values url.Values) (*ListResult, error) {
	id, err := parseID(parentID)
	if err != nil {
		return nil, err
	}

	q := Translate(values, child)
	filters := make([]Filter, 0, len(q.Filters)+1)
	filters = append(filters, Filter{Field: fk, Op: OpEq, Value: id})
	for _, f := range q.Filters {
		if f.Field == fk {
			continue
		}
		filters = append(filters, f)
	}
	q.Filters = filters

	c.delay(q.Delay)
	return c.execList(ctx, child, q)
}

// Get looks up a single record by id with relation expansion.
func (c *Controller) Get(ctx context.Context, rawID string) (Record, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	rec, err := c.store.FindOne(ctx, c.schema.Name, id, c.schema.Relations)
	if err != nil {
		return nil, wrapStoreErr("findOne", c.schema.Singular, id, err)
	}
	return rec, nil
}

// Create applies the schema's default rules to missing fields and inserts
// a new record, returning it with the server-assigned id and timestamps.
// The body is assumed to have passed the validation gate.
func (c *Controller) Create(ctx context.Context, body Record) (Record, error) {
	rec, err := c.store.Insert(ctx, c.schema.Name, c.schema.ApplyDefaults(body))
	if err != nil {
		return nil, wrapStoreErr("insert", c.schema.Singular, 0, err)
	}

	c.log.Info("created "+c.schema.Singular, "id", rec["id"])
	return rec, nil
}

// Update applies a partial-merge update: fields present in body overwrite,
// absent fields are untouched. Default rules do not inject absent fields
// on update.
func (c *Controller) Update(ctx context.Context, rawID string, body Record) (Record, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	rec, err := c.store.UpdateByID(ctx, c.schema.Name, id, body)
	if err != nil {
		return nil, wrapStoreErr("update", c.schema.Singular, id, err)
	}

	c.log.Info("updated "+c.schema.Singular, "id", id)
	return rec, nil
}

// Delete removes a record by id.
func (c *Controller) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	if err := c.store.DeleteByID(ctx, c.schema.Name, id); err != nil {
		return wrapStoreErr("delete", c.schema.Singular, id, err)
	}

	c.log.Info("deleted "+c.schema.Singular, "id", id)
	return nil
}

// Search runs the resource-bound free-text search: an OR-combination of
// case-insensitive substring filters across the schema's search fields,
// with full sort and pagination support.
func (c *Controller) Search(ctx context.Context, values url.Values) (*SearchResult, error) {
	q, err := TranslateSearch(values, c.schema)
	if err != nil {
		return nil, err
	}
	c.delay(q.Delay)

	data, err := c.store.Find(ctx, c.schema.Name, q, c.schema.Relations)
	if err != nil {
		return nil, &StoreError{Op: "find", Err: err}
	}
	total, err := c.store.Count(ctx, c.schema.Name, q)
	if err != nil {
		return nil, &StoreError{Op: "count", Err: err}
	}
	if data == nil {
		data = []Record{}
	}

	term, _ := q.Search[0].Value.(string)
	pg := paginationFor(q.Page, total)
	return &SearchResult{
		Query:      term,
		Total:      total,
		Results:    data,
		Page:       pg.Page,
		Limit:      pg.Limit,
		TotalPages: pg.TotalPages,
		HasNext:    pg.HasNext,
		HasPrev:    pg.HasPrev,
	}, nil
}

// execList runs the shared find+count pair and assembles the envelope.
func (c *Controller) execList(ctx context.Context, s *Schema, q Query) (*ListResult, error) {
	data, err := c.store.Find(ctx, s.Name, q, s.Relations)
	if err != nil {
		return nil, &StoreError{Op: "find", Err: err}
	}
	total, err := c.store.Count(ctx, s.Name, q)
	if err != nil {
		return nil, &StoreError{Op: "count", Err: err}
	}

	if data == nil {
		data = []Record{}
	}
	return &ListResult{Data: data, Pagination: paginationFor(q.Page, total)}, nil
}

// delay suspends the current call for client timeout/retry testing. The
// suspension is local to this call and not cancellable once started.
func (c *Controller) delay(d time.Duration) {
	if d > 0 {
		c.sleep(d)
	}
}

// paginationFor computes the pagination metadata block. With total = 0 the
// block reports zero pages and no next page.
func paginationFor(p Page, total int) Pagination {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}

// parseID validates a well-formed positive integer id before any store
// access.
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &ClientError{Message: "Invalid id: " + raw}
	}
	return id, nil
}
