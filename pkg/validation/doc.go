// Package validation decides whether a candidate string is acceptable for a
// field type and normalises accepted values. Dispatch is an exhaustive switch
// over layout.FieldType; rejections are returned as messages, never as
// errors, so callers can surface them next to the offending field.
package validation
