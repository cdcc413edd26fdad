package layout

import (
	"errors"
	"fmt"
)

// InvariantError describes a single structural violation.
type InvariantError struct {
	Path    Path
	Message string
}

func (e InvariantError) Error() string {
	return fmt.Sprintf("layout: %s at %s", e.Message, e.Path)
}

// CheckInvariants verifies dense zero-based ordering at every level and that
// every section and field references the parent that holds it. All
// violations are joined into the returned error.
func (f *Form) CheckInvariants() error {
	if f == nil {
		return errors.New("layout: form is nil")
	}
	var errs []error

	errs = append(errs, checkOrders(Path{}, len(f.Steps), func(i int) int { return f.Steps[i].Order })...)
	for si, step := range f.Steps {
		stepPath := Path{si}
		errs = append(errs, checkOrders(stepPath, len(step.Sections), func(i int) int { return step.Sections[i].Order })...)
		for ci, section := range step.Sections {
			sectionPath := stepPath.Child(ci)
			if section.StepID != step.ID {
				errs = append(errs, InvariantError{
					Path:    sectionPath,
					Message: fmt.Sprintf("section %d references step %d but is held by step %d", section.ID, section.StepID, step.ID),
				})
			}
			errs = append(errs, checkOrders(sectionPath, len(section.Fields), func(i int) int { return section.Fields[i].Order })...)
			for fi, field := range section.Fields {
				if field.SectionID != section.ID {
					errs = append(errs, InvariantError{
						Path:    sectionPath.Child(fi),
						Message: fmt.Sprintf("field %d references section %d but is held by section %d", field.ID, field.SectionID, section.ID),
					})
				}
			}
		}
	}

	return errors.Join(errs...)
}

// checkOrders requires order values to be a permutation of 0..n-1.
func checkOrders(parent Path, n int, orderAt func(int) int) []error {
	seen := make([]bool, n)
	var errs []error
	for i := 0; i < n; i++ {
		order := orderAt(i)
		if order < 0 || order >= n {
			errs = append(errs, InvariantError{Path: parent.Child(i), Message: fmt.Sprintf("order %d out of range 0..%d", order, n-1)})
			continue
		}
		if seen[order] {
			errs = append(errs, InvariantError{Path: parent.Child(i), Message: fmt.Sprintf("duplicate order %d", order)})
			continue
		}
		seen[order] = true
	}
	return errs
}
