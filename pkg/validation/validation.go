// Package validation checks write payloads against per-record-type rule
// tables before they reach storage. Rules cover presence, string length,
// regex patterns, email format, integer minimums, and boolean type.
package validation

import (
	"fmt"
	"math"
	"regexp"
)

// FieldValidator defines the rules for a single payload field.
type FieldValidator struct {
	// Type is the expected JSON type: string, integer, boolean, object.
	Type string

	// Required means the field must be present on create.
	Required bool

	MinLength *int
	MaxLength *int
	Pattern   string
	Format    string

	Min *float64
}

// FieldError describes a single failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Result is the outcome of validating one payload.
type Result struct {
	Valid  bool
	Errors []*FieldError
}

func (r *Result) add(field, code, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, &FieldError{Field: field, Code: code, Message: message})
}

// Details renders the errors as the details list of the error envelope.
func (r *Result) Details() []map[string]string {
	details := make([]map[string]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		details = append(details, map[string]string{
			"field":   e.Field,
			"code":    e.Code,
			"message": e.Message,
		})
	}
	return details
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateCreate checks a create payload: required fields must be present
// and every present field must satisfy its rules.
func ValidateCreate(recordType string, data map[string]any) *Result {
	return validate(recordType, data, true)
}

// ValidateUpdate checks a partial-update payload: absent fields are fine,
// present fields must satisfy their rules.
func ValidateUpdate(recordType string, data map[string]any) *Result {
	return validate(recordType, data, false)
}

func validate(recordType string, data map[string]any, requirePresence bool) *Result {
	result := &Result{Valid: true}
	rules, ok := Rules[recordType]
	if !ok {
		return result
	}

	for _, field := range sortedFields(rules) {
		fv := rules[field]
		value, present := data[field]
		if !present {
			if requirePresence && fv.Required {
				result.add(field, "required", fmt.Sprintf("%s is required", field))
			}
			continue
		}
		validateField(field, value, fv, result)
	}
	return result
}

func validateField(field string, value any, fv *FieldValidator, result *Result) {
	if value == nil {
		result.add(field, "type", fmt.Sprintf("%s must not be null", field))
		return
	}

	switch fv.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			result.add(field, "type", fmt.Sprintf("%s must be a string", field))
			return
		}
		validateString(field, s, fv, result)
	case "integer":
		n, ok := asNumber(value)
		if !ok || n != math.Trunc(n) {
			result.add(field, "type", fmt.Sprintf("%s must be an integer", field))
			return
		}
		if fv.Min != nil && n < *fv.Min {
			result.add(field, "min", fmt.Sprintf("%s must be >= %v", field, *fv.Min))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			result.add(field, "type", fmt.Sprintf("%s must be a boolean", field))
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			result.add(field, "type", fmt.Sprintf("%s must be an object", field))
		}
	}
}

func validateString(field, value string, fv *FieldValidator, result *Result) {
	if fv.MinLength != nil && len(value) < *fv.MinLength {
		result.add(field, "min_length",
			fmt.Sprintf("%s must be at least %d characters", field, *fv.MinLength))
	}
	if fv.MaxLength != nil && len(value) > *fv.MaxLength {
		result.add(field, "max_length",
			fmt.Sprintf("%s must be at most %d characters", field, *fv.MaxLength))
	}
	if fv.Pattern != "" {
		if matched, err := regexp.MatchString(fv.Pattern, value); err != nil || !matched {
			result.add(field, "pattern",
				fmt.Sprintf("%s contains invalid characters", field))
		}
	}
	if fv.Format == "email" && !emailPattern.MatchString(value) {
		result.add(field, "format", fmt.Sprintf("%s must be a valid email address", field))
	}
}

func asNumber(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
