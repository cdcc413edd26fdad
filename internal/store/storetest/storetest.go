// Package storetest holds the behaviour every store.Store backend must share.
// Backend packages call Run from their own tests with a factory that returns
// an empty store.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formwizard/internal/store"
	"github.com/goliatone/go-formwizard/pkg/account"
	"github.com/goliatone/go-formwizard/pkg/layout"
	"github.com/goliatone/go-formwizard/pkg/testsupport"
)

// Factory returns an empty backend. Cleanup is registered by the factory.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("SeedRoundTrip", func(t *testing.T) { testSeedRoundTrip(t, newStore) })
	t.Run("UnknownForm", func(t *testing.T) { testUnknownForm(t, newStore) })
	t.Run("UpsertUpdatesAndInserts", func(t *testing.T) { testUpserts(t, newStore) })
	t.Run("UpsertMissingParent", func(t *testing.T) { testMissingParent(t, newStore) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollback(t, newStore) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore) })
	t.Run("SetUserProperty", func(t *testing.T) { testSetUserProperty(t, newStore) })
}

func seeded(t *testing.T, newStore Factory) (store.Store, *layout.Form) {
	t.Helper()
	s := newStore(t)
	form := testsupport.SampleForm(t)
	require.NoError(t, s.Seed(context.Background(), form))
	return s, form
}

func testSeedRoundTrip(t *testing.T, newStore Factory) {
	s, form := seeded(t, newStore)
	ctx := context.Background()

	got, err := s.ActiveForm(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(form, got); diff != "" {
		t.Fatalf("active form mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, got.CheckInvariants())

	// Seeding twice replaces rather than duplicates.
	require.NoError(t, s.Seed(ctx, form))
	again, err := s.Form(ctx, form.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(form, again); diff != "" {
		t.Fatalf("reseeded form mismatch (-want +got):\n%s", diff)
	}

	demo, err := s.UserByID(ctx, account.DemoUserID)
	require.NoError(t, err)
	assert.Equal(t, store.DemoUser().Email, demo.Email)
}

func testUnknownForm(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.ActiveForm(ctx)
	assert.True(t, errors.Is(err, store.ErrFormNotFound), "empty store: %v", err)

	s, _ = seeded(t, newStore)
	_, err = s.Form(ctx, 999)
	assert.True(t, errors.Is(err, store.ErrFormNotFound), "unknown id: %v", err)
}

func testUpserts(t *testing.T, newStore Factory) {
	s, form := seeded(t, newStore)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.UpsertStep(ctx, layout.StepRecord{ID: 1, FormID: form.ID, Title: "Sign in", Order: 0}); err != nil {
			return err
		}
		// Section 3 moves from step 2 to step 1.
		if err := tx.UpsertSection(ctx, layout.SectionRecord{ID: 3, StepID: 1, Title: "Birthday", Order: 1, IsAdminMoveable: true, IsFrontendVisible: false}); err != nil {
			return err
		}
		if err := tx.UpsertStep(ctx, layout.StepRecord{ID: 40, FormID: form.ID, Title: "Extra", Order: 3}); err != nil {
			return err
		}
		return tx.UpsertField(ctx, layout.FieldRecord{ID: 90, SectionID: 3, Label: "Nickname", FieldType: layout.FieldTypeText, UserProperty: "aboutMe", FlexBoxWidth: 6, Order: 1})
	})
	require.NoError(t, err)

	got, err := s.ActiveForm(ctx)
	require.NoError(t, err)
	require.Len(t, got.Steps, 4)
	assert.Equal(t, "Sign in", got.Steps[0].Title)
	require.Len(t, got.Steps[0].Sections, 2)
	moved := got.Steps[0].Sections[1]
	assert.Equal(t, int64(3), moved.ID)
	assert.Equal(t, int64(1), moved.StepID)
	assert.False(t, moved.IsFrontendVisible)
	require.Len(t, moved.Fields, 2)
	assert.Equal(t, "Nickname", moved.Fields[1].Label)
	assert.Len(t, got.Steps[1].Sections, 1)
	assert.Equal(t, "Extra", got.Steps[3].Title)
}

func testMissingParent(t *testing.T, newStore Factory) {
	s, _ := seeded(t, newStore)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx store.Tx) error {
		return tx.UpsertSection(ctx, layout.SectionRecord{ID: 3, StepID: 777, Title: "Birthday"})
	})
	assert.True(t, errors.Is(err, store.ErrNotFound), "missing step: %v", err)

	err = s.InTx(ctx, func(tx store.Tx) error {
		return tx.UpsertField(ctx, layout.FieldRecord{ID: 1, SectionID: 777, Label: "Email", FieldType: layout.FieldTypeEmail, UserProperty: "email"})
	})
	assert.True(t, errors.Is(err, store.ErrNotFound), "missing section: %v", err)
}

func testRollback(t *testing.T, newStore Factory) {
	s, form := seeded(t, newStore)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.UpsertStep(ctx, layout.StepRecord{ID: 1, FormID: form.ID, Title: "Changed", Order: 0}); err != nil {
			return err
		}
		if _, err := tx.CreateUser(ctx, account.User{Email: "ghost@example.com"}); err != nil {
			return err
		}
		// Writes are visible inside the transaction.
		inner, err := tx.ActiveForm(ctx)
		if err != nil {
			return err
		}
		if inner.Steps[0].Title != "Changed" {
			return errors.New("write not visible inside transaction")
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.ActiveForm(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(form, got); diff != "" {
		t.Fatalf("rolled back form changed (-want +got):\n%s", diff)
	}
	_, err = s.UserByEmail(ctx, "ghost@example.com")
	assert.True(t, errors.Is(err, store.ErrNotFound), "rolled back user: %v", err)
}

func testUsers(t *testing.T, newStore Factory) {
	s, _ := seeded(t, newStore)
	ctx := context.Background()

	var created account.User
	err := s.InTx(ctx, func(tx store.Tx) error {
		var err error
		created, err = tx.CreateUser(ctx, account.User{Email: "ada@example.com", PasswordHash: "hash", CreatedAt: time.Now().Add(time.Hour)})
		return err
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.NotEqual(t, account.DemoUserID, created.ID)

	err = s.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.CreateUser(ctx, account.User{Email: "ada@example.com"})
		return err
	})
	assert.True(t, errors.Is(err, store.ErrDuplicate), "duplicate email: %v", err)

	got, err := s.UserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, account.DemoUserID, users[0].ID)
	assert.Equal(t, "ada@example.com", users[1].Email)
}

func testSetUserProperty(t *testing.T, newStore Factory) {
	s, _ := seeded(t, newStore)
	ctx := context.Background()
	born := time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC)

	err := s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.SetUserProperty(ctx, account.DemoUserID, account.PropertyCity, "Lisbon"); err != nil {
			return err
		}
		if err := tx.SetUserProperty(ctx, account.DemoUserID, account.PropertyAboutMe, "hello"); err != nil {
			return err
		}
		return tx.SetUserProperty(ctx, account.DemoUserID, account.PropertyBirthdate, born)
	})
	require.NoError(t, err)

	demo, err := s.UserByID(ctx, account.DemoUserID)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", demo.City)
	assert.Equal(t, "hello", demo.AboutMe)
	require.NotNil(t, demo.Birthdate)
	assert.True(t, demo.Birthdate.Equal(born), "birthdate %v", demo.Birthdate)

	err = s.InTx(ctx, func(tx store.Tx) error {
		return tx.SetUserProperty(ctx, 4242, account.PropertyCity, "Nowhere")
	})
	assert.True(t, errors.Is(err, store.ErrNotFound), "missing user: %v", err)
}
