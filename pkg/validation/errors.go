package validation

import (
	"strings"

	"github.com/goliatone/go-formwizard/pkg/layout"
)

// Errors holds field-keyed rejection messages in insertion order. Keys are
// user properties. The zero value is ready to use.
type Errors struct {
	keys     []string
	messages map[string]string
}

// Set records message for key, replacing any previous message. An empty
// message clears the key.
func (e *Errors) Set(key, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		e.Clear(key)
		return
	}
	if e.messages == nil {
		e.messages = make(map[string]string)
	}
	if _, exists := e.messages[key]; !exists {
		e.keys = append(e.keys, key)
	}
	e.messages[key] = message
}

// Clear removes the message for key.
func (e *Errors) Clear(key string) {
	if _, exists := e.messages[key]; !exists {
		return
	}
	delete(e.messages, key)
	for i, k := range e.keys {
		if k == key {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			break
		}
	}
}

// Get returns the message for key, if any.
func (e *Errors) Get(key string) (string, bool) {
	msg, ok := e.messages[key]
	return msg, ok
}

// Len reports how many fields carry a message.
func (e *Errors) Len() int {
	return len(e.keys)
}

// Keys returns the keys in insertion order.
func (e *Errors) Keys() []string {
	return append([]string(nil), e.keys...)
}

// Pairs returns the messages as ordered key/value pairs.
func (e *Errors) Pairs() [][2]string {
	out := make([][2]string, 0, len(e.keys))
	for _, k := range e.keys {
		out = append(out, [2]string{k, e.messages[k]})
	}
	return out
}

// Map returns a copy of the messages keyed by field.
func (e *Errors) Map() map[string]string {
	out := make(map[string]string, len(e.keys))
	for _, k := range e.keys {
		out[k] = e.messages[k]
	}
	return out
}

// ValidateFields validates every field against values (keyed by user
// property) and returns the accepted normalised values plus the messages of
// rejected fields. Missing values validate as empty strings.
func ValidateFields(fields []*layout.Field, values map[string]string) (map[string]any, *Errors) {
	accepted := make(map[string]any, len(fields))
	errs := &Errors{}
	for _, field := range fields {
		result := ValidateField(field, values[field.UserProperty])
		if !result.OK() {
			errs.Set(field.UserProperty, result.Message)
			continue
		}
		accepted[field.UserProperty] = result.Value
	}
	return accepted, errs
}
