package store

import (
	"fmt"
	"strings"

	"github.com/apimockr/apimockr/pkg/resource"
)

// noMatch is a predicate that selects nothing. Filters on unknown fields
// compile to it so that a lenient query still runs as parameterized SQL.
const noMatch = "0 = 1"

// compileWhere renders the filter and search portions of q into a WHERE
// clause with bound arguments. An empty clause returns "".
func compileWhere(s *resource.Schema, q resource.Query) (string, []any) {
	var (
		preds []string
		args  []any
	)

	for _, f := range q.Filters {
		pred, arg, bound := compileFilter(s, f)
		preds = append(preds, pred)
		if bound {
			args = append(args, arg)
		}
	}

	if len(q.Search) > 0 {
		ors := make([]string, 0, len(q.Search))
		for _, f := range q.Search {
			pred, arg, bound := compileFilter(s, f)
			ors = append(ors, pred)
			if bound {
				args = append(args, arg)
			}
		}
		preds = append(preds, "("+strings.Join(ors, " OR ")+")")
	}

	if len(preds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(preds, " AND "), args
}

// compileFilter renders a single filter. The returned bool reports whether
// an argument should be bound for the predicate.
func compileFilter(s *resource.Schema, f resource.Filter) (string, any, bool) {
	if !s.HasField(f.Field) {
		return noMatch, nil, false
	}

	switch f.Op {
	case resource.OpLike:
		term, ok := f.Value.(string)
		if !ok {
			return noMatch, nil, false
		}
		pred := fmt.Sprintf(`LOWER("%s") LIKE ? ESCAPE '\'`, f.Field)
		return pred, "%" + escapeLike(strings.ToLower(term)) + "%", true
	default:
		// An exact filter whose value failed integer coercion can never
		// match an integer column.
		if s.FieldKindOf(f.Field) == resource.KindInt {
			if _, ok := f.Value.(int64); !ok {
				return noMatch, nil, false
			}
		}
		return fmt.Sprintf(`"%s" = ?`, f.Field), bindValue(s.FieldKindOf(f.Field), f.Value), true
	}
}

// compileOrder renders the ORDER BY body. Unknown sort fields fall back to
// id, and id is always the final tiebreak so pagination is stable.
func compileOrder(s *resource.Schema, sort resource.Sort) string {
	field := sort.Field
	if !s.HasField(field) {
		field = "id"
	}
	dir := "ASC"
	if strings.EqualFold(sort.Dir, "desc") {
		dir = "DESC"
	}
	if field == "id" {
		return fmt.Sprintf(`"id" %s`, dir)
	}
	return fmt.Sprintf(`"%s" %s, "id" ASC`, field, dir)
}

// escapeLike escapes the LIKE wildcards in a user-supplied term.
func escapeLike(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, `%`, `\%`)
	return strings.ReplaceAll(term, `_`, `\_`)
}

func join(parts []string) string {
	return strings.Join(parts, ", ")
}
