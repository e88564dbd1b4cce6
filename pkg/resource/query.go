package resource

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Pagination defaults. Malformed or missing values fall back to these;
// list endpoints stay lenient on reads and never reject bad numerics.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	DefaultSort  = "id"
	DefaultOrder = "asc"
)

// likeSuffix marks a query key as a case-insensitive substring filter.
const likeSuffix = "_like"

// reservedKeys are recognized by the translator and never become filters.
var reservedKeys = map[string]struct{}{
	"page":   {},
	"_page":  {},
	"limit":  {},
	"_limit": {},
	"_sort":  {},
	"_order": {},
	"_delay": {},
	"q":      {},
	"type":   {},
}

// Translate maps an HTTP query-parameter set onto a normalized Query
// descriptor for the given record type. It is deterministic and
// side-effect-free: filters are emitted in sorted key order, and
// malformed numeric inputs silently fall back to defaults.
func Translate(values url.Values, s *Schema) Query {
	q := Query{
		Sort: Sort{Field: DefaultSort, Dir: DefaultOrder},
		Page: Page{Page: DefaultPage, Limit: DefaultLimit},
	}

	if v, ok := parsePositiveInt(firstNonEmpty(values, "page", "_page")); ok {
		q.Page.Page = v
	}
	if v, ok := parsePositiveInt(firstNonEmpty(values, "limit", "_limit")); ok {
		q.Page.Limit = v
	}
	if v := values.Get("_sort"); v != "" {
		q.Sort.Field = v
	}
	if v := values.Get("_order"); v != "" {
		// Unrecognized directions pass through as-is; the store decides.
		q.Sort.Dir = v
	}
	if ms, ok := parsePositiveInt(values.Get("_delay")); ok {
		q.Delay = time.Duration(ms) * time.Millisecond
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		if _, reserved := reservedKeys[key]; reserved {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := values.Get(key)
		if field, ok := strings.CutSuffix(key, likeSuffix); ok && field != "" {
			q.Filters = append(q.Filters, Filter{Field: field, Op: OpLike, Value: value})
			continue
		}
		q.Filters = append(q.Filters, Filter{
			Field: key,
			Op:    OpEq,
			Value: coerce(value, s.FieldKindOf(key)),
		})
	}

	return q
}

// TranslateSearch builds the descriptor for a resource-bound search. The
// q parameter is required; its absence or an empty value after trimming is
// a client error. The OR-group spans the schema's fixed search fields, and
// sort/pagination/delay keys apply as in Translate. Exact-match field
// filters are not part of the search contract and are ignored.
func TranslateSearch(values url.Values, s *Schema) (Query, error) {
	term := strings.TrimSpace(values.Get("q"))
	if term == "" {
		return Query{}, &ClientError{Message: `Query parameter "q" is required`}
	}

	q := Translate(values, s)
	q.Filters = nil
	q.Search = make([]Filter, 0, len(s.SearchFields))
	for _, field := range s.SearchFields {
		q.Search = append(q.Search, Filter{Field: field, Op: OpLike, Value: term})
	}
	return q, nil
}

// coerce converts a raw query-parameter value to the field's semantic
// type. Unparseable integers are kept as the raw string; an exact match
// against an integer column then simply matches nothing, keeping reads
// lenient.
func coerce(value string, kind FieldKind) any {
	switch kind {
	case KindInt:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		return value
	case KindBool:
		return value == "true"
	default:
		return value
	}
}

// firstNonEmpty returns the first non-empty value among the given keys.
func firstNonEmpty(values url.Values, keys ...string) string {
	for _, key := range keys {
		if v := values.Get(key); v != "" {
			return v
		}
	}
	return ""
}

// parsePositiveInt returns a parsed int only when the value is a valid
// positive integer.
func parsePositiveInt(v string) (int, bool) {
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
