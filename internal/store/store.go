// Package store defines the persistence contract shared by the memory,
// SQLite and Postgres backends. Layout rows are kept flat (see
// layout.StepRecord and friends) and assembled into trees on read.
package store

import (
	"context"
	"errors"

	"github.com/goliatone/go-formwizard/pkg/account"
	"github.com/goliatone/go-formwizard/pkg/layout"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrFormNotFound is returned when no form matches the requested id.
	ErrFormNotFound = errors.New("store: form not found")
	// ErrInvalid is returned for records that cannot be persisted.
	ErrInvalid = errors.New("store: invalid record")
	// ErrDuplicate is returned when a unique key (user email) is taken.
	ErrDuplicate = errors.New("store: duplicate record")
)

// Reader exposes the read side available both inside and outside a
// transaction.
type Reader interface {
	// ActiveForm returns the single live layout (the lowest form id).
	ActiveForm(ctx context.Context) (*layout.Form, error)
	Form(ctx context.Context, id int64) (*layout.Form, error)

	ListUsers(ctx context.Context) ([]account.User, error)
	UserByID(ctx context.Context, id int64) (account.User, error)
	UserByEmail(ctx context.Context, email string) (account.User, error)
}

// Tx is a unit of work. Writes become visible only when the function passed
// to Store.InTx returns nil.
type Tx interface {
	Reader

	// Upserts update the row with the record's id, or insert it when absent.
	// A missing parent yields ErrNotFound.
	UpsertStep(ctx context.Context, rec layout.StepRecord) error
	UpsertSection(ctx context.Context, rec layout.SectionRecord) error
	UpsertField(ctx context.Context, rec layout.FieldRecord) error

	// CreateUser inserts u and returns it with the assigned id. An email
	// already in use yields ErrDuplicate.
	CreateUser(ctx context.Context, u account.User) (account.User, error)
	// SetUserProperty writes one attribute of user id.
	SetUserProperty(ctx context.Context, id int64, prop account.Property, value any) error
}

// Store is a transactional backend.
type Store interface {
	Reader

	InTx(ctx context.Context, fn func(tx Tx) error) error
	// Seed replaces every layout row with form and ensures the demo user
	// exists.
	Seed(ctx context.Context, form *layout.Form) error
	Close() error
}

// Records flattens form into its persisted rows. Parent ids come from the
// holding node.
func Records(form *layout.Form) ([]layout.StepRecord, []layout.SectionRecord, []layout.FieldRecord) {
	var (
		steps    []layout.StepRecord
		sections []layout.SectionRecord
		fields   []layout.FieldRecord
	)
	if form == nil {
		return steps, sections, fields
	}
	for _, step := range form.Steps {
		steps = append(steps, step.Record(form.ID))
		for _, section := range step.Sections {
			sections = append(sections, section.Record(step.ID))
			for _, field := range section.Fields {
				fields = append(fields, field.Record(section.ID))
			}
		}
	}
	return steps, sections, fields
}

// DemoUser is the row every backend seeds so anonymous field updates have a
// target.
func DemoUser() account.User {
	return account.User{ID: account.DemoUserID, Email: "demo@example.com"}
}
