package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-formwizard/internal/store"
	"github.com/goliatone/go-formwizard/internal/store/memstore"
	"github.com/goliatone/go-formwizard/pkg/account"
	"github.com/goliatone/go-formwizard/pkg/editor"
	"github.com/goliatone/go-formwizard/pkg/layout"
	"github.com/goliatone/go-formwizard/pkg/testsupport"
)

func newStore(t *testing.T) *memstore.Store {
	t.Helper()
	st := memstore.New()
	require.NoError(t, st.Seed(context.Background(), testsupport.SampleForm(t)))
	return st
}

func newUsers(st store.Store) *Users {
	return NewUsers(st, WithHashCost(bcrypt.MinCost))
}

func TestLayouts_FrontendHidesInvisibleSections(t *testing.T) {
	layouts := NewLayouts(newStore(t))
	ctx := context.Background()

	admin, err := layouts.FetchAdminLayout(ctx)
	require.NoError(t, err)
	front, err := layouts.FetchFrontendLayout(ctx)
	require.NoError(t, err)

	assert.Len(t, admin.Steps[2].Sections, 2)
	assert.Len(t, front.Steps[2].Sections, 1)
	for _, step := range front.Steps {
		for _, section := range step.Sections {
			assert.True(t, section.IsFrontendVisible, "section %d leaked", section.ID)
		}
	}
}

func TestLayouts_SaveSanitisesAndRoundTrips(t *testing.T) {
	layouts := NewLayouts(newStore(t))
	ctx := context.Background()

	admin, err := layouts.FetchAdminLayout(ctx)
	require.NoError(t, err)
	edited := admin.Clone()
	editor.RenameStep(edited, 1, "<b>About</b> you")

	saved, err := layouts.SaveLayout(ctx, edited)
	require.NoError(t, err)
	assert.Equal(t, "About you", saved.Steps[1].Title)
	assert.Equal(t, "<b>About</b> you", edited.Steps[1].Title, "caller tree must not be mutated")

	again, err := layouts.SaveLayout(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, saved, again)
}

func TestLayouts_SessionsDiffAgainstStoredTree(t *testing.T) {
	layouts := NewLayouts(newStore(t))
	ctx := context.Background()

	first := editor.NewSession(layouts)
	second := editor.NewSession(layouts)
	require.NoError(t, first.Load(ctx))
	require.NoError(t, second.Load(ctx))

	require.True(t, second.RenameStep(2, "Where you live"))
	_, err := second.Save(ctx)
	require.NoError(t, err)

	// The first session's snapshot still holds "Address"; the diff runs
	// against storage, so its stale title is written back.
	require.True(t, first.RenameStep(0, "Sign in"))
	saved, err := first.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sign in", saved.Steps[0].Title)
	assert.Equal(t, "Address", saved.Steps[2].Title, "last writer wins")
	assert.Equal(t, saved, first.Synced())
}

func TestLayouts_EmptyStore(t *testing.T) {
	layouts := NewLayouts(memstore.New())
	_, err := layouts.FetchAdminLayout(context.Background())
	assert.True(t, errors.Is(err, store.ErrFormNotFound))
}

func TestUsers_UpdateFieldValueNormalises(t *testing.T) {
	users := newUsers(newStore(t))
	ctx := context.Background()

	u, err := users.UpdateFieldValue(ctx, account.FieldUpdate{UserProperty: "birthdate", Value: "1990-04-01", FieldType: layout.FieldTypeDate})
	require.NoError(t, err)
	require.NotNil(t, u.Birthdate)
	assert.True(t, u.Birthdate.Equal(time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, account.DemoUserID, u.ID)

	u, err = users.UpdateFieldValue(ctx, account.FieldUpdate{UserProperty: "aboutMe", Value: " 7.50 ", FieldType: layout.FieldTypeNumber})
	require.NoError(t, err)
	assert.Equal(t, "7.5", u.AboutMe)
}

func TestUsers_UpdateFieldValueRejects(t *testing.T) {
	users := newUsers(newStore(t))
	ctx := context.Background()

	cases := []struct {
		name   string
		update account.FieldUpdate
	}{
		{"unknown property", account.FieldUpdate{UserProperty: "isAdmin", Value: "true", FieldType: layout.FieldTypeText}},
		{"bad zip", account.FieldUpdate{UserProperty: "postalCode", Value: "123", FieldType: layout.FieldTypePostalCode}},
		{"bad type", account.FieldUpdate{UserProperty: "city", Value: "x", FieldType: layout.FieldType("CHECKBOX")}},
		{"date into text property", account.FieldUpdate{UserProperty: "birthdate", Value: "Lisbon", FieldType: layout.FieldTypeText}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := users.UpdateFieldValue(ctx, tc.update)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestUsers_UpdateTargetsAuthenticatedEmail(t *testing.T) {
	users := newUsers(newStore(t))
	ctx := context.Background()

	res, err := users.Authenticate(ctx, "Ada@Example.com", "password123")
	require.NoError(t, err)
	require.True(t, res.Success)

	u, err := users.UpdateFieldValue(ctx, account.FieldUpdate{UserProperty: "city", Value: "London", FieldType: layout.FieldTypeText, Email: "ada@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, account.DemoUserID, u.ID)
	assert.Equal(t, "London", u.City)

	_, err = users.UpdateFieldValue(ctx, account.FieldUpdate{UserProperty: "city", Value: "x", FieldType: layout.FieldTypeText, Email: "nobody@example.com"})
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
}

func TestUsers_Authenticate(t *testing.T) {
	users := newUsers(newStore(t))
	ctx := context.Background()

	invalid, err := users.Authenticate(ctx, "not-an-email", "password123")
	require.NoError(t, err)
	assert.False(t, invalid.Success)
	assert.Equal(t, "Invalid email address.", invalid.Message)

	short, err := users.Authenticate(ctx, "a@b.com", "short")
	require.NoError(t, err)
	assert.False(t, short.Success)
	assert.NotEmpty(t, short.Message)

	created, err := users.Authenticate(ctx, "a@b.com", "password123")
	require.NoError(t, err)
	assert.True(t, created.Success)
	assert.True(t, created.Created)

	again, err := users.Authenticate(ctx, "A@B.com", "password123")
	require.NoError(t, err)
	assert.True(t, again.Success)
	assert.False(t, again.Created)

	wrong, err := users.Authenticate(ctx, "a@b.com", "password999")
	require.NoError(t, err)
	assert.False(t, wrong.Success)
	assert.NotEmpty(t, wrong.Message)

	stored, err := users.UserByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", stored.PasswordHash)
}

func TestUsers_DemoUserAdoptsFirstPassword(t *testing.T) {
	users := newUsers(newStore(t))
	ctx := context.Background()

	res, err := users.Authenticate(ctx, store.DemoUser().Email, "password123")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Created)

	res, err = users.Authenticate(ctx, store.DemoUser().Email, "different1")
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestUsers_Lookups(t *testing.T) {
	users := newUsers(newStore(t))
	ctx := context.Background()

	exists, err := users.UserExists(ctx, store.DemoUser().Email)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = users.UserExists(ctx, "ghost@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = users.UserExists(ctx, " ")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = users.UserByEmail(ctx, "ghost@example.com")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	list, err := users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
