package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-formwizard/pkg/layout"
)

const (
	PasswordMinLength = 8
	PasswordMaxLength = 16
	PostalCodeLength  = 5
)

var emailPattern = regexp.MustCompile(`^[\w.%+-]+@[\w.-]+\.[a-zA-Z]{2,}$`)

// dateLayouts are tried in order; the first match wins.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// Result is the outcome of validating one candidate value. When Message is
// empty the value was accepted and Value holds its normalised form: float64
// for numbers, time.Time for dates, the raw string otherwise, nil for an
// accepted empty optional value.
type Result struct {
	Value   any
	Message string
}

// OK reports whether the candidate was accepted.
func (r Result) OK() bool {
	return r.Message == ""
}

func accept(value any) Result {
	return Result{Value: value}
}

func reject(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// Validate decides whether value is acceptable for a field of type t. It is
// a pure function of its inputs. Unknown types are rejected.
func Validate(t layout.FieldType, required bool, value string) Result {
	return validate(t, required, value, "")
}

// ValidateField validates value against the field declaration and phrases
// messages with the field label.
func ValidateField(field *layout.Field, value string) Result {
	if field == nil {
		return reject("Unknown field.")
	}
	return validate(field.FieldType, field.IsRequired, value, field.Label)
}

func validate(t layout.FieldType, required bool, value, label string) Result {
	if isEmpty(value) {
		if !required {
			return accept(nil)
		}
		return reject("%s is required.", subject(t, label))
	}

	switch t {
	case layout.FieldTypeText, layout.FieldTypeMultilineText:
		return accept(value)
	case layout.FieldTypeEmail:
		if !emailPattern.MatchString(value) {
			return reject("Invalid email address.")
		}
		return accept(value)
	case layout.FieldTypePassword:
		n := utf8.RuneCountInString(value)
		if n < PasswordMinLength || n > PasswordMaxLength {
			return reject("Password must be between %d and %d characters.", PasswordMinLength, PasswordMaxLength)
		}
		return accept(value)
	case layout.FieldTypeNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return reject("%s must be a number.", subject(t, label))
		}
		return accept(n)
	case layout.FieldTypeDate:
		d, ok := parseDate(value)
		if !ok {
			return reject("%s must be a valid date.", subject(t, label))
		}
		return accept(d)
	case layout.FieldTypePostalCode:
		if utf8.RuneCountInString(value) != PostalCodeLength {
			return reject("%s must be exactly %d characters.", subject(t, label), PostalCodeLength)
		}
		return accept(value)
	default:
		return reject("Unsupported field type %q.", string(t))
	}
}

func isEmpty(value string) bool {
	return strings.TrimSpace(value) == ""
}

func subject(t layout.FieldType, label string) string {
	if label = strings.TrimSpace(label); label != "" {
		return label
	}
	switch t {
	case layout.FieldTypeEmail:
		return "Email"
	case layout.FieldTypePassword:
		return "Password"
	case layout.FieldTypeNumber:
		return "Number"
	case layout.FieldTypeDate:
		return "Date"
	case layout.FieldTypePostalCode:
		return "Postal code"
	default:
		return "Value"
	}
}

func parseDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	for _, l := range dateLayouts {
		if d, err := time.Parse(l, trimmed); err == nil {
			return d.UTC(), true
		}
	}
	return time.Time{}, false
}

// Canonical renders an accepted value back to its canonical string form:
// numbers without trailing zeros and dates as YYYY-MM-DD.
func Canonical(r Result) string {
	switch v := r.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}
