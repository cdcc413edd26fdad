package layout

import (
	"fmt"
	"strings"
)

// FieldType is the closed enumeration of input kinds a field can declare.
type FieldType string

const (
	FieldTypeText          FieldType = "TEXT"
	FieldTypeMultilineText FieldType = "MULTILINETEXT"
	FieldTypeNumber        FieldType = "NUMBER"
	FieldTypeDate          FieldType = "DATE"
	FieldTypeEmail         FieldType = "EMAIL"
	FieldTypePassword      FieldType = "PASSWORD"
	FieldTypePostalCode    FieldType = "ZIP"
)

// FieldTypes lists every supported field type in declaration order.
func FieldTypes() []FieldType {
	return []FieldType{
		FieldTypeText,
		FieldTypeMultilineText,
		FieldTypeNumber,
		FieldTypeDate,
		FieldTypeEmail,
		FieldTypePassword,
		FieldTypePostalCode,
	}
}

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeMultilineText, FieldTypeNumber, FieldTypeDate,
		FieldTypeEmail, FieldTypePassword, FieldTypePostalCode:
		return true
	default:
		return false
	}
}

// ParseFieldType accepts the wire names plus a few lower-case aliases
// ("postal-code", "multiline-text") used in hand-written seed files.
func ParseFieldType(raw string) (FieldType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	switch normalized {
	case "MULTILINE-TEXT", "MULTILINE_TEXT", "TEXTAREA":
		return FieldTypeMultilineText, nil
	case "POSTAL-CODE", "POSTAL_CODE", "POSTALCODE":
		return FieldTypePostalCode, nil
	}
	t := FieldType(normalized)
	if !t.Valid() {
		return "", fmt.Errorf("layout: unknown field type %q", raw)
	}
	return t, nil
}

// UnmarshalText lets JSON and YAML decoders accept aliases.
func (t *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText always emits the canonical wire name.
func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}
