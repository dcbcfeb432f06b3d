// Package transfer maps catalog rows to and from the flat key/value
// representation exchanged over HTTP.
//
// Field lists are explicit per entity. Primary keys are only ever written
// outbound; foreign keys travel as raw integer ids in both directions.
package transfer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	apperrors "servicecatalog.io/catalog/internal/pkg/errors"
)

// Payload is an inbound flat mapping. Values are what encoding/json produces
// with UseNumber (json.Number, string, bool, nil, []any, map[string]any) or
// plain strings for form-encoded bodies.
type Payload map[string]any

// Field error messages.
const (
	msgRequired  = "This field is required."
	msgNull      = "This field may not be null."
	msgBlank     = "This field may not be blank."
	msgNotString = "Not a valid string."
	msgNullChar  = "Null characters are not allowed."
)

// fieldErrors accumulates every failure of one payload.
type fieldErrors []apperrors.FieldError

func (fe *fieldErrors) add(field, code, message string) {
	*fe = append(*fe, apperrors.FieldError{Field: field, Code: code, Message: message})
}

// charField reads a required string field. Surrounding whitespace is trimmed.
// maxLen <= 0 disables the length check.
func charField(p Payload, name string, maxLen int, errs *fieldErrors) string {
	raw, ok := p[name]
	if !ok {
		errs.add(name, apperrors.FieldRequired, msgRequired)
		return ""
	}

	var s string
	switch v := raw.(type) {
	case nil:
		errs.add(name, apperrors.FieldNull, msgNull)
		return ""
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	default:
		errs.add(name, apperrors.FieldInvalid, msgNotString)
		return ""
	}

	if !utf8.ValidString(s) {
		errs.add(name, apperrors.FieldInvalid, msgNotString)
		return ""
	}
	if strings.ContainsRune(s, 0) {
		errs.add(name, apperrors.FieldInvalid, msgNullChar)
		return ""
	}

	s = strings.TrimSpace(s)
	if s == "" {
		errs.add(name, apperrors.FieldBlank, msgBlank)
		return ""
	}
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		errs.add(name, apperrors.FieldMaxLength,
			fmt.Sprintf("Ensure this field has no more than %d characters.", maxLen))
		return ""
	}
	return s
}

// pkField reads a required foreign-key id. Integers, integral JSON numbers
// such as 1.0 and decimal digit strings are accepted.
func pkField(p Payload, name string, errs *fieldErrors) int64 {
	raw, ok := p[name]
	if !ok {
		errs.add(name, apperrors.FieldRequired, msgRequired)
		return 0
	}

	switch v := raw.(type) {
	case nil:
		errs.add(name, apperrors.FieldNull, msgNull)
		return 0
	case json.Number:
		if id, err := v.Int64(); err == nil {
			return id
		}
		if id, ok := integral(v); ok {
			return id
		}
		errs.add(name, apperrors.FieldIncorrectType, incorrectType("float"))
		return 0
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
		errs.add(name, apperrors.FieldIncorrectType, incorrectType("float"))
		return 0
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return id
		}
		errs.add(name, apperrors.FieldIncorrectType, incorrectType("str"))
		return 0
	default:
		errs.add(name, apperrors.FieldIncorrectType, incorrectType(kindOf(v)))
		return 0
	}
}

// integral reports whether n is a whole number that fits in an int64.
func integral(n json.Number) (int64, bool) {
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func incorrectType(kind string) string {
	return fmt.Sprintf("Incorrect type. Expected pk value, received %s.", kind)
}

func kindOf(v any) string {
	switch v.(type) {
	case bool:
		return "bool"
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// DoesNotExist builds the field error reported when a well-typed foreign key
// points at no row.
func DoesNotExist(field string, id int64) apperrors.FieldError {
	return apperrors.FieldError{
		Field:   field,
		Code:    apperrors.FieldDoesNotExist,
		Message: fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id),
	}
}

// NotAnObject builds the payload-level error reported when the body is valid
// JSON but not an object.
func NotAnObject(kind string) apperrors.FieldError {
	return apperrors.FieldError{
		Field:   apperrors.NonFieldErrors,
		Code:    apperrors.FieldInvalid,
		Message: fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", kind),
	}
}

// JSONKind names the JSON type of a decoded value for error messages.
func JSONKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "str"
	case json.Number, float64:
		return "int"
	default:
		return kindOf(v)
	}
}
