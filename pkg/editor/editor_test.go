package editor

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/layout"
)

// newForm builds two steps. Step 0 holds sections A(locked), B, C; step 1
// holds D, E. Section B holds fields b0, b1, b2.
func newForm() *layout.Form {
	section := func(id, step int64, title string, order int, moveable bool, fields ...*layout.Field) *layout.Section {
		if fields == nil {
			fields = []*layout.Field{}
		}
		return &layout.Section{ID: id, StepID: step, Title: title, Order: order, IsAdminMoveable: moveable, IsFrontendVisible: true, Fields: fields}
	}
	field := func(id, section int64, label string, order int) *layout.Field {
		return &layout.Field{ID: id, SectionID: section, Label: label, FieldType: layout.FieldTypeText, UserProperty: label, Order: order}
	}
	return &layout.Form{ID: 1, Name: "Test", Steps: []*layout.Step{
		{ID: 1, Title: "One", Order: 0, Sections: []*layout.Section{
			section(10, 1, "A", 0, false),
			section(11, 1, "B", 1, true, field(100, 11, "b0", 0), field(101, 11, "b1", 1), field(102, 11, "b2", 2)),
			section(12, 1, "C", 2, true),
		}},
		{ID: 2, Title: "Two", Order: 1, Sections: []*layout.Section{
			section(20, 2, "D", 0, true),
			section(21, 2, "E", 1, true),
		}},
	}}
}

func sectionTitles(step *layout.Step) []string {
	out := make([]string, len(step.Sections))
	for i, s := range step.Sections {
		out[i] = s.Title
	}
	return out
}

func mustValid(t *testing.T, form *layout.Form) {
	t.Helper()
	if err := form.CheckInvariants(); err != nil {
		t.Fatalf("invariants broken: %v", err)
	}
}

func TestReorderWithinParent_SwapsNeighbours(t *testing.T) {
	form := newForm()
	if !ReorderWithinParent(form, layout.Path{0}, 1, Down) {
		t.Fatal("expected reorder to apply")
	}
	if diff := cmp.Diff([]string{"A", "C", "B"}, sectionTitles(form.Steps[0])); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	mustValid(t, form)
}

func TestReorderWithinParent_NoOps(t *testing.T) {
	cases := []struct {
		name   string
		parent layout.Path
		index  int
		dir    Direction
	}{
		{"first up", layout.Path{1}, 0, Up},
		{"last down", layout.Path{1}, 1, Down},
		{"locked child", layout.Path{0}, 0, Down},
		{"locked neighbour", layout.Path{0}, 1, Up},
		{"missing parent", layout.Path{9}, 0, Down},
		{"bad direction", layout.Path{1}, 0, Direction(2)},
		{"negative index", layout.Path{1}, -1, Down},
		{"fields of locked section", layout.Path{0, 0}, 0, Down},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := newForm()
			before := form.Clone()
			if ReorderWithinParent(form, tc.parent, tc.index, tc.dir) {
				t.Fatal("expected no-op")
			}
			if diff := cmp.Diff(before, form); diff != "" {
				t.Fatalf("tree changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReorderWithinParent_StepsAndFields(t *testing.T) {
	form := newForm()
	if !ReorderWithinParent(form, layout.Path{}, 0, Down) {
		t.Fatal("step reorder should apply")
	}
	if form.Steps[0].Title != "Two" || form.Steps[0].Order != 0 || form.Steps[1].Order != 1 {
		t.Fatalf("unexpected steps: %q/%d %q/%d", form.Steps[0].Title, form.Steps[0].Order, form.Steps[1].Title, form.Steps[1].Order)
	}

	form = newForm()
	if !ReorderWithinParent(form, layout.Path{0, 1}, 2, Up) {
		t.Fatal("field reorder should apply")
	}
	got := []string{}
	for _, f := range form.Steps[0].Sections[1].Fields {
		got = append(got, f.Label)
	}
	if diff := cmp.Diff([]string{"b0", "b2", "b1"}, got); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
	mustValid(t, form)
}

func TestReorderWithinParent_RandomSequenceKeepsDenseOrder(t *testing.T) {
	form := newForm()
	moves := []struct {
		index int
		dir   Direction
	}{{0, Down}, {1, Down}, {1, Up}, {2, Up}, {0, Up}, {1, Down}, {2, Down}, {1, Up}}
	for _, m := range moves {
		ReorderWithinParent(form, layout.Path{1}, m.index, m.dir)
		ReorderWithinParent(form, layout.Path{0}, m.index, m.dir)
		ReorderWithinParent(form, layout.Path{0, 1}, m.index, m.dir)
		mustValid(t, form)
	}
	if form.Steps[0].Sections[0].Title != "A" {
		t.Fatalf("locked section moved to %q", form.Steps[0].Sections[0].Title)
	}
}

func TestMoveToAnotherParent_AppendsAndRenumbers(t *testing.T) {
	form := newForm()
	if !MoveToAnotherParent(form, layout.Path{1}, 0, layout.Path{0}) {
		t.Fatal("expected move to apply")
	}
	if diff := cmp.Diff([]string{"A", "B", "C", "D"}, sectionTitles(form.Steps[0])); diff != "" {
		t.Fatalf("destination mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"E"}, sectionTitles(form.Steps[1])); diff != "" {
		t.Fatalf("source mismatch (-want +got):\n%s", diff)
	}
	moved := form.Steps[0].Sections[3]
	if moved.StepID != 1 || moved.Order != 3 {
		t.Fatalf("moved section stepId=%d order=%d", moved.StepID, moved.Order)
	}
	mustValid(t, form)
}

func TestMoveToAnotherParent_RoundTripRestoresSiblingOrder(t *testing.T) {
	form := newForm()
	before := sectionTitles(form.Steps[1])

	if !MoveToAnotherParent(form, layout.Path{1}, 0, layout.Path{0}) {
		t.Fatal("move out failed")
	}
	if !MoveToAnotherParent(form, layout.Path{0}, 3, layout.Path{1}) {
		t.Fatal("move back failed")
	}

	after := sectionTitles(form.Steps[1])
	// D went to the end; E keeps its position relative to the others.
	if diff := cmp.Diff([]string{"E", "D"}, after); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if len(before) != len(after) {
		t.Fatalf("sibling count changed: %v -> %v", before, after)
	}
	mustValid(t, form)
}

func TestMoveToAnotherParent_Fields(t *testing.T) {
	form := newForm()
	if !MoveToAnotherParent(form, layout.Path{0, 1}, 0, layout.Path{1, 0}) {
		t.Fatal("field move should apply")
	}
	dest := form.Steps[1].Sections[0]
	if len(dest.Fields) != 1 || dest.Fields[0].SectionID != 20 || dest.Fields[0].Order != 0 {
		t.Fatalf("unexpected destination fields: %+v", dest.Fields)
	}
	src := form.Steps[0].Sections[1]
	if src.Fields[0].Label != "b1" || src.Fields[0].Order != 0 || src.Fields[1].Order != 1 {
		t.Fatalf("source not renumbered: %+v", src.Fields)
	}
	mustValid(t, form)
}

func TestMoveToAnotherParent_NoOps(t *testing.T) {
	cases := []struct {
		name  string
		from  layout.Path
		index int
		to    layout.Path
	}{
		{"same parent", layout.Path{0}, 1, layout.Path{0}},
		{"locked section", layout.Path{0}, 0, layout.Path{1}},
		{"missing child", layout.Path{1}, 5, layout.Path{0}},
		{"missing destination", layout.Path{1}, 0, layout.Path{7}},
		{"depth mismatch", layout.Path{1}, 0, layout.Path{0, 1}},
		{"steps cannot be re-parented", layout.Path{}, 0, layout.Path{}},
		{"field into locked section", layout.Path{0, 1}, 0, layout.Path{0, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := newForm()
			before := form.Clone()
			if MoveToAnotherParent(form, tc.from, tc.index, tc.to) {
				t.Fatal("expected no-op")
			}
			if diff := cmp.Diff(before, form); diff != "" {
				t.Fatalf("tree changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMoveToAnotherParent_KeepsLockedSiblingInPlace(t *testing.T) {
	form := newForm()
	// Put a locked section after a moveable one in step 1.
	form.Steps[1].Sections[1].IsAdminMoveable = false
	before := form.Clone()

	if MoveToAnotherParent(form, layout.Path{1}, 0, layout.Path{0}) {
		t.Fatal("moving D would shift locked E")
	}
	if diff := cmp.Diff(before, form); diff != "" {
		t.Fatalf("tree changed (-want +got):\n%s", diff)
	}
}

func TestToggleVisibility_IgnoresLock(t *testing.T) {
	form := newForm()
	if !ToggleVisibility(form, layout.Path{0, 0}) {
		t.Fatal("toggle should apply to locked section")
	}
	if form.Steps[0].Sections[0].IsFrontendVisible {
		t.Fatal("visibility not flipped")
	}
	if ToggleVisibility(form, layout.Path{0}) {
		t.Fatal("toggle with a step path should be a no-op")
	}
}

func TestRenameStep(t *testing.T) {
	form := newForm()
	if !RenameStep(form, 1, "") {
		t.Fatal("rename should accept empty title")
	}
	if form.Steps[1].Title != "" {
		t.Fatalf("title = %q", form.Steps[1].Title)
	}
	if RenameStep(form, 5, "x") {
		t.Fatal("rename of missing step should be a no-op")
	}
}
