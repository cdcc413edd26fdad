package layout

import "sort"

// StepRecord is the persisted, child-less projection of a Step.
type StepRecord struct {
	ID     int64
	FormID int64
	Title  string
	Order  int
}

// SectionRecord is the persisted, child-less projection of a Section.
type SectionRecord struct {
	ID                int64
	StepID            int64
	Title             string
	Order             int
	IsAdminMoveable   bool
	IsFrontendVisible bool
}

// FieldRecord is the persisted projection of a Field.
type FieldRecord struct {
	ID           int64
	SectionID    int64
	Label        string
	FieldType    FieldType
	UserProperty string
	FlexBoxWidth int
	IsRequired   bool
	Order        int
}

// Record projects the step for persistence.
func (s *Step) Record(formID int64) StepRecord {
	return StepRecord{ID: s.ID, FormID: formID, Title: s.Title, Order: s.Order}
}

// Record projects the section for persistence. The parent comes from the
// holding step, not from StepID, so a re-parented section always persists
// under the step that owns it in the tree.
func (s *Section) Record(stepID int64) SectionRecord {
	return SectionRecord{
		ID:                s.ID,
		StepID:            stepID,
		Title:             s.Title,
		Order:             s.Order,
		IsAdminMoveable:   s.IsAdminMoveable,
		IsFrontendVisible: s.IsFrontendVisible,
	}
}

// Record projects the field for persistence under the holding section.
func (f *Field) Record(sectionID int64) FieldRecord {
	return FieldRecord{
		ID:           f.ID,
		SectionID:    sectionID,
		Label:        f.Label,
		FieldType:    f.FieldType,
		UserProperty: f.UserProperty,
		FlexBoxWidth: f.FlexBoxWidth,
		IsRequired:   f.IsRequired,
		Order:        f.Order,
	}
}

// Assemble builds a tree from flat records. Children are sorted by Order and
// orphans (records whose parent is absent) are dropped.
func Assemble(form Form, steps []StepRecord, sections []SectionRecord, fields []FieldRecord) *Form {
	out := &Form{ID: form.ID, Name: form.Name, Steps: []*Step{}}

	fieldsBySection := make(map[int64][]*Field)
	for _, rec := range fields {
		fieldsBySection[rec.SectionID] = append(fieldsBySection[rec.SectionID], &Field{
			ID:           rec.ID,
			SectionID:    rec.SectionID,
			Label:        rec.Label,
			FieldType:    rec.FieldType,
			UserProperty: rec.UserProperty,
			FlexBoxWidth: rec.FlexBoxWidth,
			IsRequired:   rec.IsRequired,
			Order:        rec.Order,
		})
	}

	sectionsByStep := make(map[int64][]*Section)
	for _, rec := range sections {
		children := fieldsBySection[rec.ID]
		sortByOrder(children, func(f *Field) (int, int64) { return f.Order, f.ID })
		if children == nil {
			children = []*Field{}
		}
		sectionsByStep[rec.StepID] = append(sectionsByStep[rec.StepID], &Section{
			ID:                rec.ID,
			StepID:            rec.StepID,
			Title:             rec.Title,
			Order:             rec.Order,
			IsAdminMoveable:   rec.IsAdminMoveable,
			IsFrontendVisible: rec.IsFrontendVisible,
			Fields:            children,
		})
	}

	for _, rec := range steps {
		if rec.FormID != form.ID {
			continue
		}
		children := sectionsByStep[rec.ID]
		sortByOrder(children, func(s *Section) (int, int64) { return s.Order, s.ID })
		if children == nil {
			children = []*Section{}
		}
		out.Steps = append(out.Steps, &Step{
			ID:       rec.ID,
			Title:    rec.Title,
			Order:    rec.Order,
			Sections: children,
		})
	}
	sortByOrder(out.Steps, func(s *Step) (int, int64) { return s.Order, s.ID })
	return out
}

func sortByOrder[T any](items []T, key func(T) (int, int64)) {
	sort.SliceStable(items, func(i, j int) bool {
		oi, ii := key(items[i])
		oj, ij := key(items[j])
		if oi != oj {
			return oi < oj
		}
		return ii < ij
	})
}
