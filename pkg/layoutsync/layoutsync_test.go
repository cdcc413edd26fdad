package layoutsync

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/internal/store"
	"github.com/goliatone/go-formwizard/internal/store/memstore"
	"github.com/goliatone/go-formwizard/pkg/editor"
	"github.com/goliatone/go-formwizard/pkg/layout"
	"github.com/goliatone/go-formwizard/pkg/testsupport"
)

func seededStore(t *testing.T) (*memstore.Store, *layout.Form) {
	t.Helper()
	st := memstore.New()
	form := testsupport.SampleForm(t)
	if err := st.Seed(context.Background(), form); err != nil {
		t.Fatalf("seed: %v", err)
	}
	canonical, err := st.ActiveForm(context.Background())
	if err != nil {
		t.Fatalf("active form: %v", err)
	}
	return st, canonical
}

func TestDiff_UneditedTreeIsEmpty(t *testing.T) {
	form := testsupport.SampleForm(t)
	if plan := Diff(form.Clone(), form); !plan.Empty() {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestDiff_EmitsChangedAndNewEntities(t *testing.T) {
	baseline := testsupport.SampleForm(t)
	edited := baseline.Clone()

	editor.RenameStep(edited, 0, "Sign in")
	editor.MoveToAnotherParent(edited, layout.Path{1}, 1, layout.Path{2})
	edited.Steps[2].Sections[0].Fields = append(edited.Steps[2].Sections[0].Fields, &layout.Field{
		ID: 99, SectionID: edited.Steps[2].Sections[0].ID, Label: "Unit", FieldType: layout.FieldTypeText, UserProperty: "street", Order: 4,
	})

	plan := Diff(edited, baseline)

	if diff := cmp.Diff([]layout.StepRecord{{ID: 1, FormID: 1, Title: "Sign in", Order: 0}}, plan.Steps); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
	if len(plan.Sections) != 1 || plan.Sections[0].ID != 3 || plan.Sections[0].StepID != 3 || plan.Sections[0].Order != 2 {
		t.Fatalf("unexpected sections %+v", plan.Sections)
	}
	if len(plan.Fields) != 1 || plan.Fields[0].ID != 99 {
		t.Fatalf("unexpected fields %+v", plan.Fields)
	}
}

func TestDiff_NilBaselineEmitsEverything(t *testing.T) {
	form := testsupport.SampleForm(t)
	plan := Diff(form, nil)
	if len(plan.Steps) != 3 || len(plan.Sections) != 5 || len(plan.Fields) != 9 {
		t.Fatalf("unexpected plan sizes %d/%d/%d", len(plan.Steps), len(plan.Sections), len(plan.Fields))
	}
}

func TestSave_IsIdempotent(t *testing.T) {
	st, canonical := seededStore(t)
	syncer := NewSyncer(st)

	res, err := syncer.Save(context.Background(), canonical.Clone(), canonical)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !res.Plan.Empty() {
		t.Fatalf("expected zero upserts, got %d", res.Plan.Len())
	}
	if diff := cmp.Diff(canonical, res.Form); diff != "" {
		t.Fatalf("canonical changed (-want +got):\n%s", diff)
	}
}

func TestSave_PersistsEditsAndReturnsCanonical(t *testing.T) {
	st, canonical := seededStore(t)
	syncer := NewSyncer(st)
	edited := canonical.Clone()

	editor.ReorderWithinParent(edited, layout.Path{1}, 0, editor.Down)
	editor.ToggleVisibility(edited, layout.Path{2, 1})
	editor.MoveToAnotherParent(edited, layout.Path{2, 0}, 3, layout.Path{1, 0})

	res, err := syncer.Save(context.Background(), edited, canonical)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if diff := cmp.Diff(edited, res.Form); diff != "" {
		t.Fatalf("returned tree mismatch (-want +got):\n%s", diff)
	}
	stored, err := st.ActiveForm(context.Background())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if diff := cmp.Diff(res.Form, stored); diff != "" {
		t.Fatalf("stored tree mismatch (-want +got):\n%s", diff)
	}
	if err := stored.CheckInvariants(); err != nil {
		t.Fatalf("stored tree invalid: %v", err)
	}

	// A second save of the returned tree is a no-op.
	again, err := syncer.Save(context.Background(), res.Form.Clone(), res.Form)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if !again.Plan.Empty() {
		t.Fatalf("second save wrote %d rows", again.Plan.Len())
	}
}

func TestSave_NilBaselineReadsStoredTree(t *testing.T) {
	st, canonical := seededStore(t)
	edited := canonical.Clone()
	editor.RenameStep(edited, 2, "Where you live")

	res, err := NewSyncer(st).Save(context.Background(), edited, nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Plan.Len() != 1 || res.Form.Steps[2].Title != "Where you live" {
		t.Fatalf("unexpected result plan=%d title=%q", res.Plan.Len(), res.Form.Steps[2].Title)
	}
}

func TestSave_KeepsStoredLockFlag(t *testing.T) {
	st, canonical := seededStore(t)
	edited := canonical.Clone()
	edited.Steps[0].Sections[0].IsAdminMoveable = true

	res, err := NewSyncer(st).Save(context.Background(), edited, nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Form.Steps[0].Sections[0].IsAdminMoveable {
		t.Fatal("lock flag should not be writable through a save")
	}
}

func TestSave_RejectsMovedLockedSection(t *testing.T) {
	st, canonical := seededStore(t)
	edited := canonical.Clone()
	locked := edited.Steps[0].Sections[0]
	edited.Steps[0].Sections = nil
	locked.StepID = edited.Steps[1].ID
	locked.Order = len(edited.Steps[1].Sections)
	edited.Steps[1].Sections = append(edited.Steps[1].Sections, locked)
	if err := edited.CheckInvariants(); err != nil {
		t.Fatalf("edited tree should be structurally valid: %v", err)
	}

	_, err := NewSyncer(st).Save(context.Background(), edited, canonical)
	if !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout, got %v", err)
	}
	stored, err := st.ActiveForm(context.Background())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if diff := cmp.Diff(canonical, stored); diff != "" {
		t.Fatalf("rejected save wrote rows (-want +got):\n%s", diff)
	}
}

func TestSave_RejectsRearrangedLockedFields(t *testing.T) {
	st, canonical := seededStore(t)
	edited := canonical.Clone()
	fields := edited.Steps[0].Sections[0].Fields
	fields[0], fields[1] = fields[1], fields[0]
	fields[0].Order, fields[1].Order = 0, 1

	_, err := NewSyncer(st).Save(context.Background(), edited, nil)
	if !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout, got %v", err)
	}
}

func TestSave_RejectsDroppedEntities(t *testing.T) {
	cases := map[string]func(form *layout.Form){
		"section": func(form *layout.Form) {
			step := form.Steps[1]
			step.Sections = step.Sections[1:]
			step.Sections[0].Order = 0
		},
		"field": func(form *layout.Form) {
			section := form.Steps[2].Sections[0]
			section.Fields = section.Fields[:len(section.Fields)-1]
		},
		"step": func(form *layout.Form) {
			form.Steps = form.Steps[:2]
		},
	}
	for name, drop := range cases {
		t.Run(name, func(t *testing.T) {
			st, canonical := seededStore(t)
			edited := canonical.Clone()
			drop(edited)
			if err := edited.CheckInvariants(); err != nil {
				t.Fatalf("edited tree should be structurally valid: %v", err)
			}

			_, err := NewSyncer(st).Save(context.Background(), edited, canonical)
			if !errors.Is(err, ErrInvalidLayout) {
				t.Fatalf("expected ErrInvalidLayout, got %v", err)
			}
			stored, err := st.ActiveForm(context.Background())
			if err != nil {
				t.Fatalf("reload: %v", err)
			}
			if err := stored.CheckInvariants(); err != nil {
				t.Fatalf("stored tree broken: %v", err)
			}
			if _, err := NewSyncer(st).Save(context.Background(), stored.Clone(), stored); err != nil {
				t.Fatalf("stored tree should still save: %v", err)
			}
		})
	}
}

func TestSave_UnknownForm(t *testing.T) {
	st, canonical := seededStore(t)
	edited := canonical.Clone()
	edited.ID = 42

	_, err := NewSyncer(st).Save(context.Background(), edited, nil)
	if !errors.Is(err, ErrFormNotFound) {
		t.Fatalf("expected ErrFormNotFound, got %v", err)
	}
}

func TestSave_RejectsBrokenOrders(t *testing.T) {
	st, canonical := seededStore(t)
	edited := canonical.Clone()
	edited.Steps[1].Order = 7

	_, err := NewSyncer(st).Save(context.Background(), edited, nil)
	if !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout, got %v", err)
	}
}

type failingStore struct {
	*memstore.Store
}

func (f failingStore) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.InTx(ctx, func(tx store.Tx) error {
		return fn(failingTx{Tx: tx})
	})
}

type failingTx struct {
	store.Tx
}

func (failingTx) UpsertField(context.Context, layout.FieldRecord) error {
	return errors.New("disk full")
}

func TestSave_RollsBackOnFailure(t *testing.T) {
	st, canonical := seededStore(t)
	edited := canonical.Clone()
	editor.RenameStep(edited, 0, "Changed")
	editor.ReorderWithinParent(edited, layout.Path{2, 0}, 0, editor.Down)

	_, err := NewSyncer(failingStore{st}).Save(context.Background(), edited, canonical)
	if err == nil {
		t.Fatal("expected failure")
	}
	stored, err := st.ActiveForm(context.Background())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if diff := cmp.Diff(canonical, stored); diff != "" {
		t.Fatalf("partial write leaked (-want +got):\n%s", diff)
	}
}

func TestSave_FixtureTree(t *testing.T) {
	ctx := testsupport.Context(t)
	st, canonical := seededStore(t)
	fixture := testsupport.MustLoadForm(t, "testdata/moved_birthday.yaml")

	want := canonical.Clone()
	editor.MoveToAnotherParent(want, layout.Path{1}, 1, layout.Path{2})
	if diff := cmp.Diff(want, fixture); diff != "" {
		t.Fatalf("fixture does not match the edited tree (-want +got):\n%s", diff)
	}

	res, err := NewSyncer(st).Save(ctx, fixture, canonical)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Plan.Len() != 1 {
		t.Fatalf("expected a single section upsert, got %+v", res.Plan)
	}
	wantLabels := []string{"Street", "City", "State", "Zip", "Country", "Birthdate"}
	if diff := cmp.Diff(wantLabels, testsupport.Labels(res.Form.Steps[2])); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
	if got := testsupport.Labels(res.Form.Steps[1]); len(got) != 1 {
		t.Fatalf("expected one field left on step 2, got %v", got)
	}
}

func TestLoadForm_MissingFile(t *testing.T) {
	if _, err := testsupport.LoadForm(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := testsupport.LoadForm("testdata/absent.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
