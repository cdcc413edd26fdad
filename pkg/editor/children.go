package editor

import "github.com/goliatone/go-formwizard/pkg/layout"

// siblings abstracts the ordered child slice of one parent so the edit
// operations can be written once for every level of the tree.
type siblings interface {
	len() int
	locked(i int) bool
	// frozen reports whether the parent refuses incoming children.
	frozen() bool
	reparentable() bool
	swap(i, j int)
	setOrder(i, order int)
	remove(i int) any
	append(child any)
}

func childrenOf(form *layout.Form, parent layout.Path) (siblings, bool) {
	switch parent.Depth() {
	case layout.DepthForm:
		return stepList{form: form}, true
	case layout.DepthStep:
		step := form.StepAt(parent[0])
		if step == nil {
			return nil, false
		}
		return sectionList{step: step}, true
	case layout.DepthSection:
		section := form.SectionAt(parent)
		if section == nil {
			return nil, false
		}
		return fieldList{section: section}, true
	default:
		return nil, false
	}
}

type stepList struct{ form *layout.Form }

func (l stepList) len() int           { return len(l.form.Steps) }
func (l stepList) locked(int) bool    { return false }
func (l stepList) frozen() bool       { return false }
func (l stepList) reparentable() bool { return false }
func (l stepList) swap(i, j int)      { l.form.Steps[i], l.form.Steps[j] = l.form.Steps[j], l.form.Steps[i] }
func (l stepList) setOrder(i, o int)  { l.form.Steps[i].Order = o }
func (l stepList) remove(int) any     { return nil }
func (l stepList) append(any)         {}

type sectionList struct{ step *layout.Step }

func (l sectionList) len() int           { return len(l.step.Sections) }
func (l sectionList) locked(i int) bool  { return !l.step.Sections[i].IsAdminMoveable }
func (l sectionList) frozen() bool       { return false }
func (l sectionList) reparentable() bool { return true }

func (l sectionList) swap(i, j int) {
	l.step.Sections[i], l.step.Sections[j] = l.step.Sections[j], l.step.Sections[i]
}

func (l sectionList) setOrder(i, o int) { l.step.Sections[i].Order = o }

func (l sectionList) remove(i int) any {
	section := l.step.Sections[i]
	l.step.Sections = append(l.step.Sections[:i:i], l.step.Sections[i+1:]...)
	return section
}

func (l sectionList) append(child any) {
	section := child.(*layout.Section)
	section.StepID = l.step.ID
	l.step.Sections = append(l.step.Sections, section)
}

// fieldList treats fields as locked whenever their owning section is.
type fieldList struct{ section *layout.Section }

func (l fieldList) len() int           { return len(l.section.Fields) }
func (l fieldList) locked(int) bool    { return !l.section.IsAdminMoveable }
func (l fieldList) frozen() bool       { return !l.section.IsAdminMoveable }
func (l fieldList) reparentable() bool { return true }

func (l fieldList) swap(i, j int) {
	l.section.Fields[i], l.section.Fields[j] = l.section.Fields[j], l.section.Fields[i]
}

func (l fieldList) setOrder(i, o int) { l.section.Fields[i].Order = o }

func (l fieldList) remove(i int) any {
	field := l.section.Fields[i]
	l.section.Fields = append(l.section.Fields[:i:i], l.section.Fields[i+1:]...)
	return field
}

func (l fieldList) append(child any) {
	field := child.(*layout.Field)
	field.SectionID = l.section.ID
	l.section.Fields = append(l.section.Fields, field)
}
