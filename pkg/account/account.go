// Package account describes the onboarding user record the wizard writes to
// and the set of properties a layout field may target.
package account

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formwizard/pkg/layout"
)

// DemoUserID is the user written to when no authenticated email is known.
const DemoUserID int64 = 1

// ErrUnknownProperty is returned when a field targets a property that is not
// part of the user record.
var ErrUnknownProperty = errors.New("account: unknown user property")

// User is one onboarding user. PasswordHash never leaves the server.
type User struct {
	ID           int64      `json:"id" yaml:"id"`
	Email        string     `json:"email" yaml:"email"`
	PasswordHash string     `json:"-" yaml:"-"`
	AboutMe      string     `json:"aboutMe,omitempty" yaml:"aboutMe,omitempty"`
	Street       string     `json:"street,omitempty" yaml:"street,omitempty"`
	City         string     `json:"city,omitempty" yaml:"city,omitempty"`
	State        string     `json:"state,omitempty" yaml:"state,omitempty"`
	PostalCode   string     `json:"postalCode,omitempty" yaml:"postalCode,omitempty"`
	Country      string     `json:"country,omitempty" yaml:"country,omitempty"`
	Birthdate    *time.Time `json:"birthdate,omitempty" yaml:"birthdate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt" yaml:"createdAt"`
}

// Property names a writable user attribute by its wire name.
type Property string

const (
	PropertyEmail      Property = "email"
	PropertyPassword   Property = "password"
	PropertyAboutMe    Property = "aboutMe"
	PropertyStreet     Property = "street"
	PropertyCity       Property = "city"
	PropertyState      Property = "state"
	PropertyPostalCode Property = "postalCode"
	PropertyCountry    Property = "country"
	PropertyBirthdate  Property = "birthdate"
)

var properties = []Property{
	PropertyEmail,
	PropertyPassword,
	PropertyAboutMe,
	PropertyStreet,
	PropertyCity,
	PropertyState,
	PropertyPostalCode,
	PropertyCountry,
	PropertyBirthdate,
}

// Properties lists every property in column order.
func Properties() []Property {
	out := make([]Property, len(properties))
	copy(out, properties)
	return out
}

// ParseProperty resolves a field's userProperty, case-insensitively.
func ParseProperty(raw string) (Property, error) {
	trimmed := strings.TrimSpace(raw)
	for _, p := range properties {
		if strings.EqualFold(string(p), trimmed) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProperty, raw)
}

// Credential reports whether the property belongs to the authentication
// step rather than the profile.
func (p Property) Credential() bool {
	return p == PropertyEmail || p == PropertyPassword
}

// Column returns the snake_case storage column for p.
func (p Property) Column() string {
	switch p {
	case PropertyPassword:
		return "password_hash"
	case PropertyAboutMe:
		return "about_me"
	case PropertyPostalCode:
		return "postal_code"
	default:
		return string(p)
	}
}

// Apply writes value onto the matching attribute. Strings go to text
// attributes and time.Time (or nil) to birthdate.
func (u *User) Apply(p Property, value any) error {
	if p == PropertyBirthdate {
		switch v := value.(type) {
		case nil:
			u.Birthdate = nil
		case time.Time:
			t := v.UTC()
			u.Birthdate = &t
		case *time.Time:
			u.Birthdate = v
		default:
			return fmt.Errorf("account: birthdate expects a time, got %T", value)
		}
		return nil
	}

	var text string
	switch v := value.(type) {
	case nil:
	case string:
		text = v
	case fmt.Stringer:
		text = v.String()
	default:
		text = fmt.Sprint(v)
	}

	switch p {
	case PropertyEmail:
		u.Email = text
	case PropertyPassword:
		u.PasswordHash = text
	case PropertyAboutMe:
		u.AboutMe = text
	case PropertyStreet:
		u.Street = text
	case PropertyCity:
		u.City = text
	case PropertyState:
		u.State = text
	case PropertyPostalCode:
		u.PostalCode = text
	case PropertyCountry:
		u.Country = text
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProperty, p)
	}
	return nil
}

// Get reads one attribute. Birthdate yields a *time.Time, everything else a
// string.
func (u User) Get(p Property) any {
	switch p {
	case PropertyEmail:
		return u.Email
	case PropertyPassword:
		return u.PasswordHash
	case PropertyAboutMe:
		return u.AboutMe
	case PropertyStreet:
		return u.Street
	case PropertyCity:
		return u.City
	case PropertyState:
		return u.State
	case PropertyPostalCode:
		return u.PostalCode
	case PropertyCountry:
		return u.Country
	case PropertyBirthdate:
		return u.Birthdate
	default:
		return nil
	}
}

// FieldUpdate is one wizard field write. Email selects the target user; the
// demo user is written when it is empty.
type FieldUpdate struct {
	UserProperty string           `json:"userProperty"`
	Value        string           `json:"value"`
	FieldType    layout.FieldType `json:"fieldType"`
	Email        string           `json:"email,omitempty"`
}

// AuthResult is the outcome of an authentication attempt. Message is set
// when Success is false.
type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Created bool   `json:"created,omitempty"`
}
