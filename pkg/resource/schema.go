package resource

// FieldKind is the semantic type of a declared field, consulted when
// coercing query-parameter values. Adding a field or type is a data
// change in the schema table, not a code change in the translator.
type FieldKind int

// Field kinds.
const (
	KindText FieldKind = iota
	KindInt
	KindBool
	// KindJSON marks a nested-object field stored as serialized JSON.
	KindJSON
)

// Schema describes one record type: its declared fields, expandable
// relations, create-time default rules, and search fields.
type Schema struct {
	// Name is the plural resource name and the store table, e.g. "posts".
	Name string
	// Singular is used in client-facing messages, e.g. "post".
	Singular string
	// Fields maps declared payload field names to their semantic kind.
	// The id and timestamp fields are implicit and not listed.
	Fields map[string]FieldKind
	// Relations are the expandable associations attached on reads.
	Relations []Relation
	// Defaults are applied to missing fields at create time only.
	Defaults map[string]any
	// SearchFields is the fixed set of text fields free-text search
	// matches against.
	SearchFields []string
}

// FieldKindOf returns the semantic kind for a field name. The implicit id
// field and any declared foreign key resolve per the schema table;
// undeclared fields are treated as text.
func (s *Schema) FieldKindOf(field string) FieldKind {
	if field == "id" {
		return KindInt
	}
	if kind, ok := s.Fields[field]; ok {
		return kind
	}
	return KindText
}

// HasField reports whether field is the implicit id, a timestamp, or a
// declared field of this record type.
func (s *Schema) HasField(field string) bool {
	switch field {
	case "id", "createdAt", "updatedAt":
		return true
	}
	_, ok := s.Fields[field]
	return ok
}

// ApplyDefaults returns data with the schema's default rules applied to
// missing fields. The input map is not mutated.
func (s *Schema) ApplyDefaults(data Record) Record {
	out := make(Record, len(data)+len(s.Defaults))
	for k, v := range data {
		out[k] = v
	}
	for field, value := range s.Defaults {
		if _, ok := out[field]; !ok {
			out[field] = value
		}
	}
	return out
}

// Users is the schema for the users record type.
var Users = &Schema{
	Name:     "users",
	Singular: "user",
	Fields: map[string]FieldKind{
		"name":     KindText,
		"username": KindText,
		"email":    KindText,
		"phone":    KindText,
		"website":  KindText,
		"address":  KindJSON,
		"company":  KindJSON,
	},
	SearchFields: []string{"name", "username", "email"},
}

// Posts is the schema for the posts record type. Each post references a
// user and expands a trimmed author object on reads.
var Posts = &Schema{
	Name:     "posts",
	Singular: "post",
	Fields: map[string]FieldKind{
		"title":  KindText,
		"body":   KindText,
		"userId": KindInt,
	},
	Relations: []Relation{
		{Name: "user", Table: "users", FK: "userId", Fields: []string{"id", "name", "username"}},
	},
	Defaults:     map[string]any{"userId": int64(1)},
	SearchFields: []string{"title", "body"},
}

// Todos is the schema for the todos record type.
var Todos = &Schema{
	Name:     "todos",
	Singular: "todo",
	Fields: map[string]FieldKind{
		"title":       KindText,
		"description": KindText,
		"completed":   KindBool,
		"userId":      KindInt,
	},
	Relations: []Relation{
		{Name: "user", Table: "users", FK: "userId", Fields: []string{"id", "name", "username"}},
	},
	Defaults:     map[string]any{"completed": false, "userId": int64(1)},
	SearchFields: []string{"title", "description"},
}

// Comments is the schema for the comments record type. Each comment
// references a post.
var Comments = &Schema{
	Name:     "comments",
	Singular: "comment",
	Fields: map[string]FieldKind{
		"name":   KindText,
		"email":  KindText,
		"body":   KindText,
		"postId": KindInt,
	},
	Relations: []Relation{
		{Name: "post", Table: "posts", FK: "postId", Fields: []string{"id", "title"}},
	},
	SearchFields: []string{"name", "email", "body"},
}

// Schemas lists every registered record type in route-registration order.
var Schemas = []*Schema{Users, Posts, Todos, Comments}

// SchemaByName resolves a record type by its plural name. Returns nil when
// the name is not registered.
func SchemaByName(name string) *Schema {
	for _, s := range Schemas {
		if s.Name == name {
			return s
		}
	}
	return nil
}
