package validation

import "sort"

func intp(n int) *int           { return &n }
func floatp(f float64) *float64 { return &f }

// Rules maps each record type to its field rule table. Unknown record
// types validate as a no-op.
var Rules = map[string]map[string]*FieldValidator{
	"users": {
		"name": {
			Type: "string", Required: true,
			MinLength: intp(1), MaxLength: intp(100),
		},
		"username": {
			Type: "string", Required: true,
			MinLength: intp(3), MaxLength: intp(50),
			Pattern: `^[a-zA-Z0-9_]+$`,
		},
		"email": {
			Type: "string", Required: true,
			Format: "email",
		},
		"address": {Type: "object"},
		"company": {Type: "object"},
	},
	"posts": {
		"title": {
			Type: "string", Required: true,
			MinLength: intp(1), MaxLength: intp(200),
		},
		"body": {
			Type: "string", Required: true,
			MinLength: intp(1), MaxLength: intp(5000),
		},
		"userId": {Type: "integer", Min: floatp(1)},
	},
	"todos": {
		"title": {
			Type: "string", Required: true,
			MinLength: intp(1), MaxLength: intp(200),
		},
		"description": {Type: "string", MaxLength: intp(1000)},
		"completed":   {Type: "boolean"},
		"userId":      {Type: "integer", Min: floatp(1)},
	},
	"comments": {
		"name": {
			Type: "string", Required: true,
			MinLength: intp(1), MaxLength: intp(100),
		},
		"email": {
			Type: "string", Required: true,
			Format: "email",
		},
		"body": {
			Type: "string", Required: true,
			MinLength: intp(1), MaxLength: intp(1000),
		},
		"postId": {Type: "integer", Min: floatp(1)},
	},
}

// sortedFields keeps error ordering deterministic for clients and tests.
func sortedFields(rules map[string]*FieldValidator) []string {
	fields := make([]string, 0, len(rules))
	for f := range rules {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
