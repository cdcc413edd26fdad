package layout

// Form is the root of the onboarding layout tree. Exactly one form is active
// in a running system.
type Form struct {
	ID    int64   `json:"id" yaml:"id"`
	Name  string  `json:"name" yaml:"name"`
	Steps []*Step `json:"steps" yaml:"steps"`
}

// Step is a wizard page. Order is unique within the owning form.
type Step struct {
	ID       int64      `json:"id" yaml:"id"`
	Title    string     `json:"title" yaml:"title"`
	Order    int        `json:"order" yaml:"order"`
	Sections []*Section `json:"sections" yaml:"sections"`
}

// Section groups fields inside a step. Sections can be re-parented between
// steps unless IsAdminMoveable is false.
type Section struct {
	ID                int64    `json:"id" yaml:"id"`
	StepID            int64    `json:"stepId" yaml:"stepId"`
	Title             string   `json:"title" yaml:"title"`
	Order             int      `json:"order" yaml:"order"`
	IsAdminMoveable   bool     `json:"isAdminMoveable" yaml:"isAdminMoveable"`
	IsFrontendVisible bool     `json:"isFrontendVisible" yaml:"isFrontendVisible"`
	Fields            []*Field `json:"fields" yaml:"fields"`
}

// Field is a single input bound to a user property.
type Field struct {
	ID           int64     `json:"id" yaml:"id"`
	SectionID    int64     `json:"sectionId" yaml:"sectionId"`
	Label        string    `json:"label" yaml:"label"`
	FieldType    FieldType `json:"fieldType" yaml:"fieldType"`
	UserProperty string    `json:"userProperty" yaml:"userProperty"`
	FlexBoxWidth int       `json:"flexBoxWidth" yaml:"flexBoxWidth"`
	IsRequired   bool      `json:"isRequired" yaml:"isRequired"`
	Order        int       `json:"order" yaml:"order"`
}

// Clone returns a deep copy of the form. Mutating the copy never affects the
// receiver.
func (f *Form) Clone() *Form {
	if f == nil {
		return nil
	}
	out := &Form{ID: f.ID, Name: f.Name}
	if f.Steps != nil {
		out.Steps = make([]*Step, len(f.Steps))
		for i, step := range f.Steps {
			out.Steps[i] = step.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the step and its sections.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	out := *s
	if s.Sections != nil {
		out.Sections = make([]*Section, len(s.Sections))
		for i, section := range s.Sections {
			out.Sections[i] = section.Clone()
		}
	}
	return &out
}

// Clone returns a deep copy of the section and its fields.
func (s *Section) Clone() *Section {
	if s == nil {
		return nil
	}
	out := *s
	if s.Fields != nil {
		out.Fields = make([]*Field, len(s.Fields))
		for i, field := range s.Fields {
			cp := *field
			out.Fields[i] = &cp
		}
	}
	return &out
}

// FrontendView returns a filtered clone holding only frontend-visible
// sections. The receiver is left untouched.
func (f *Form) FrontendView() *Form {
	out := f.Clone()
	if out == nil {
		return nil
	}
	for _, step := range out.Steps {
		visible := make([]*Section, 0, len(step.Sections))
		for _, section := range step.Sections {
			if section.IsFrontendVisible {
				visible = append(visible, section)
			}
		}
		step.Sections = visible
	}
	return out
}

// Fields returns the fields of every section in the step, in display order.
func (s *Step) Fields() []*Field {
	if s == nil {
		return nil
	}
	var out []*Field
	for _, section := range s.Sections {
		out = append(out, section.Fields...)
	}
	return out
}

// Renumber rewrites every order value to match slice positions and repairs
// parent references. Seeding uses it to normalise hand-written documents.
func (f *Form) Renumber() {
	if f == nil {
		return
	}
	for i, step := range f.Steps {
		step.Order = i
		for j, section := range step.Sections {
			section.Order = j
			section.StepID = step.ID
			for k, field := range section.Fields {
				field.Order = k
				field.SectionID = section.ID
			}
		}
	}
}
