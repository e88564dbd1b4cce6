// Package store implements the SQLite-backed record store consumed by the
// resource controllers. SQLite is the query engine; the schema is embedded
// and applied on open.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/apimockr/apimockr/pkg/resource"
)

//go:embed schema.sql
var schemaSQL string

// timeFormat is the timestamp representation stored in the database and
// returned to clients.
const timeFormat = time.RFC3339

// Store is a SQLite-backed implementation of resource.Store. It is safe
// for concurrent use; isolation and single-statement atomicity are
// delegated to SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// embedded schema. Use ":memory:" for an in-process throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single pooled connection keeps ":memory:" databases coherent and
	// serializes writers on file databases.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (st *Store) Close() error {
	return st.db.Close()
}

// Find implements resource.Store.
func (st *Store) Find(ctx context.Context, table string, q resource.Query, expand []resource.Relation) ([]resource.Record, error) {
	s, err := schemaFor(table)
	if err != nil {
		return nil, err
	}

	where, args := compileWhere(s, q)
	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s LIMIT ? OFFSET ?`,
		columnList(s), table, where, compileOrder(s, q.Sort))
	args = append(args, q.Page.Limit, q.Page.Skip())

	rows, err := st.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var recs []resource.Record
	for rows.Next() {
		rec, err := scanRecord(s, rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}

	if err := st.attachRelations(ctx, expand, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Count implements resource.Store. Only the filter portion of q applies.
func (st *Store) Count(ctx context.Context, table string, q resource.Query) (int, error) {
	s, err := schemaFor(table)
	if err != nil {
		return 0, err
	}

	where, args := compileWhere(s, q)
	var n int
	err = st.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, table, where), args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// FindOne implements resource.Store.
func (st *Store) FindOne(ctx context.Context, table string, id int64, expand []resource.Relation) (resource.Record, error) {
	s, err := schemaFor(table)
	if err != nil {
		return nil, err
	}

	rows, err := st.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE "id" = ?`, columnList(s), table), id)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query %s: %w", table, err)
		}
		return nil, resource.ErrNotFound
	}
	rec, err := scanRecord(s, rows)
	if err != nil {
		return nil, err
	}
	// Release the single pooled connection before attachRelations issues
	// its own query; holding the cursor open here deadlocks the pool.
	rows.Close()

	if err := st.attachRelations(ctx, expand, []resource.Record{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

// Insert implements resource.Store. Undeclared fields in data are dropped;
// timestamps are assigned here.
func (st *Store) Insert(ctx context.Context, table string, data resource.Record) (resource.Record, error) {
	s, err := schemaFor(table)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(timeFormat)
	cols := []string{"createdAt", "updatedAt"}
	args := []any{now, now}
	rec := resource.Record{"createdAt": now, "updatedAt": now}

	for _, field := range declaredFields(s) {
		value, ok := data[field]
		if !ok {
			continue
		}
		cols = append(cols, field)
		args = append(args, bindValue(s.FieldKindOf(field), value))
		rec[field] = value
	}

	placeholders := make([]string, len(cols))
	for i, col := range cols {
		cols[i] = `"` + col + `"`
		placeholders[i] = "?"
	}

	res, err := st.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		table, join(cols), join(placeholders)), args...)
	if err != nil {
		return nil, mapSQLErr(fmt.Errorf("insert %s: %w", table, err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	rec["id"] = id
	return rec, nil
}

// UpdateByID implements resource.Store: a partial merge where only fields
// present in data are written.
func (st *Store) UpdateByID(ctx context.Context, table string, id int64, data resource.Record) (resource.Record, error) {
	s, err := schemaFor(table)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(timeFormat)
	sets := []string{`"updatedAt" = ?`}
	args := []any{now}
	for _, field := range declaredFields(s) {
		value, ok := data[field]
		if !ok {
			continue
		}
		sets = append(sets, `"`+field+`" = ?`)
		args = append(args, bindValue(s.FieldKindOf(field), value))
	}
	args = append(args, id)

	res, err := st.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET %s WHERE "id" = ?`,
		table, join(sets)), args...)
	if err != nil {
		return nil, mapSQLErr(fmt.Errorf("update %s: %w", table, err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	if affected == 0 {
		return nil, resource.ErrNotFound
	}

	return st.FindOne(ctx, table, id, nil)
}

// DeleteByID implements resource.Store. Child records referencing the
// deleted id keep their foreign-key value; there is no cascade at this
// layer.
func (st *Store) DeleteByID(ctx context.Context, table string, id int64) error {
	if _, err := schemaFor(table); err != nil {
		return err
	}

	res, err := st.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE "id" = ?`, table), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if affected == 0 {
		return resource.ErrNotFound
	}
	return nil
}

// DeleteAll clears a table and resets its AUTOINCREMENT sequence so that
// reseeded ids start from 1 again.
func (st *Store) DeleteAll(ctx context.Context, table string) error {
	if _, err := schemaFor(table); err != nil {
		return err
	}

	if _, err := st.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if _, err := st.db.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = ?`, table); err != nil {
		return fmt.Errorf("reset %s sequence: %w", table, err)
	}
	return nil
}

// attachRelations resolves each relation into a nested sub-object on the
// fetched records with one IN query per relation.
func (st *Store) attachRelations(ctx context.Context, expand []resource.Relation, recs []resource.Record) error {
	if len(expand) == 0 || len(recs) == 0 {
		return nil
	}

	for _, rel := range expand {
		related, err := schemaFor(rel.Table)
		if err != nil {
			return err
		}

		ids := make([]any, 0, len(recs))
		seen := make(map[int64]struct{}, len(recs))
		for _, rec := range recs {
			id, ok := rec[rel.FK].(int64)
			if !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			continue
		}

		placeholders := make([]string, len(ids))
		for i := range placeholders {
			placeholders[i] = "?"
		}
		cols := make([]string, len(rel.Fields))
		for i, f := range rel.Fields {
			cols[i] = `"` + f + `"`
		}

		rows, err := st.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE "id" IN (%s)`,
			join(cols), rel.Table, join(placeholders)), ids...)
		if err != nil {
			return fmt.Errorf("expand %s: %w", rel.Name, err)
		}

		byID := make(map[int64]resource.Record, len(ids))
		for rows.Next() {
			values := make([]any, len(rel.Fields))
			ptrs := make([]any, len(rel.Fields))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				rows.Close()
				return fmt.Errorf("expand %s: %w", rel.Name, err)
			}
			sub := make(resource.Record, len(rel.Fields))
			for i, f := range rel.Fields {
				sub[f] = convertValue(related.FieldKindOf(f), values[i])
			}
			if id, ok := sub["id"].(int64); ok {
				byID[id] = sub
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("expand %s: %w", rel.Name, err)
		}
		rows.Close()

		for _, rec := range recs {
			if id, ok := rec[rel.FK].(int64); ok {
				if sub, found := byID[id]; found {
					rec[rel.Name] = sub
				}
			}
		}
	}
	return nil
}

// scanRecord reads the current row into a Record using the schema's
// column order and semantic kinds.
func scanRecord(s *resource.Schema, rows *sql.Rows) (resource.Record, error) {
	cols := recordColumns(s)
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.Name, err)
	}

	rec := make(resource.Record, len(cols))
	for i, col := range cols {
		rec[col] = convertValue(s.FieldKindOf(col), values[i])
	}
	return rec, nil
}

// convertValue maps raw driver values back to their JSON representation.
func convertValue(kind resource.FieldKind, raw any) any {
	if raw == nil {
		return nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	switch kind {
	case resource.KindBool:
		if n, ok := raw.(int64); ok {
			return n != 0
		}
	case resource.KindJSON:
		if s, ok := raw.(string); ok {
			var nested any
			if err := json.Unmarshal([]byte(s), &nested); err == nil {
				return nested
			}
		}
	}
	return raw
}

// bindValue maps a record value to its SQLite parameter representation.
// Integral JSON numbers arrive as float64 and are normalized so integer
// columns keep INTEGER affinity.
func bindValue(kind resource.FieldKind, value any) any {
	switch kind {
	case resource.KindInt:
		switch n := value.(type) {
		case int:
			return int64(n)
		case float64:
			if n == math.Trunc(n) {
				return int64(n)
			}
		}
	case resource.KindBool:
		if b, ok := value.(bool); ok {
			if b {
				return int64(1)
			}
			return int64(0)
		}
	case resource.KindJSON:
		if value == nil {
			return nil
		}
		if b, err := json.Marshal(value); err == nil {
			return string(b)
		}
	}
	return value
}

// schemaFor resolves and validates a table name against the registered
// record types. Table names are interpolated into SQL, so only registered
// names are accepted.
func schemaFor(table string) (*resource.Schema, error) {
	if s := resource.SchemaByName(table); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("unknown table %q", table)
}

// declaredFields returns the schema's payload fields in sorted order for
// deterministic SQL.
func declaredFields(s *resource.Schema) []string {
	fields := make([]string, 0, len(s.Fields))
	for f := range s.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// recordColumns returns every column selected for a full record read.
func recordColumns(s *resource.Schema) []string {
	cols := append([]string{"id"}, declaredFields(s)...)
	return append(cols, "createdAt", "updatedAt")
}

// columnList renders recordColumns as a quoted SELECT list.
func columnList(s *resource.Schema) string {
	cols := recordColumns(s)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + c + `"`
	}
	return join(quoted)
}

// mapSQLErr converts driver-level constraint violations into the store's
// sentinel errors.
func mapSQLErr(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return resource.ErrConflict
		}
	}
	return err
}
