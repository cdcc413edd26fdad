package layoutsync

import "github.com/goliatone/go-formwizard/pkg/layout"

// Plan is the set of rows a save must write, in tree order. Parents precede
// their children so inserts never reference missing rows.
type Plan struct {
	Steps    []layout.StepRecord    `json:"steps"`
	Sections []layout.SectionRecord `json:"sections"`
	Fields   []layout.FieldRecord   `json:"fields"`
}

// Len returns the number of upserts in the plan.
func (p Plan) Len() int {
	return len(p.Steps) + len(p.Sections) + len(p.Fields)
}

// Empty reports whether the plan writes nothing.
func (p Plan) Empty() bool { return p.Len() == 0 }

// Diff compares edited against baseline entity by entity. An entity is
// emitted when it is missing from the baseline or any persisted attribute
// differs, including its parent reference. Entities present only in the
// baseline are ignored; removal is not part of the protocol.
func Diff(edited, baseline *layout.Form) Plan {
	var plan Plan
	if edited == nil {
		return plan
	}

	var (
		steps    = map[int64]layout.StepRecord{}
		sections = map[int64]layout.SectionRecord{}
		fields   = map[int64]layout.FieldRecord{}
	)
	if baseline != nil {
		for _, step := range baseline.Steps {
			steps[step.ID] = step.Record(baseline.ID)
			for _, section := range step.Sections {
				sections[section.ID] = section.Record(step.ID)
				for _, field := range section.Fields {
					fields[field.ID] = field.Record(section.ID)
				}
			}
		}
	}

	for _, step := range edited.Steps {
		rec := step.Record(edited.ID)
		if old, ok := steps[rec.ID]; !ok || old != rec {
			plan.Steps = append(plan.Steps, rec)
		}
		for _, section := range step.Sections {
			rec := section.Record(step.ID)
			if old, ok := sections[rec.ID]; !ok || old != rec {
				plan.Sections = append(plan.Sections, rec)
			}
			for _, field := range section.Fields {
				rec := field.Record(section.ID)
				if old, ok := fields[rec.ID]; !ok || old != rec {
					plan.Fields = append(plan.Fields, rec)
				}
			}
		}
	}
	return plan
}
