package layoutsync

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formwizard/pkg/layout"
)

// checkAgainstStored rejects edited trees the upsert-only protocol cannot
// apply cleanly: every stored entity must still be present, and a locked
// section keeps its step, its order and its exact field list.
func checkAgainstStored(edited, stored *layout.Form) error {
	steps := map[int64]bool{}
	sections := map[int64]*layout.Section{}
	fields := map[int64]*layout.Field{}
	for _, step := range edited.Steps {
		steps[step.ID] = true
		for _, section := range step.Sections {
			sections[section.ID] = section
			for _, field := range section.Fields {
				fields[field.ID] = field
			}
		}
	}

	var errs []error
	for _, step := range stored.Steps {
		if !steps[step.ID] {
			errs = append(errs, fmt.Errorf("stored step %d is missing", step.ID))
		}
		for _, section := range step.Sections {
			got, ok := sections[section.ID]
			if !ok {
				errs = append(errs, fmt.Errorf("stored section %d is missing", section.ID))
			}
			for _, field := range section.Fields {
				if _, ok := fields[field.ID]; !ok {
					errs = append(errs, fmt.Errorf("stored field %d is missing", field.ID))
				}
			}
			if ok && !section.IsAdminMoveable {
				errs = append(errs, checkLocked(got, section)...)
			}
		}
	}
	return errors.Join(errs...)
}

func checkLocked(got, stored *layout.Section) []error {
	var errs []error
	if got.StepID != stored.StepID || got.Order != stored.Order {
		errs = append(errs, fmt.Errorf("locked section %d moved from step %d order %d to step %d order %d",
			stored.ID, stored.StepID, stored.Order, got.StepID, got.Order))
	}
	if len(got.Fields) != len(stored.Fields) {
		return append(errs, fmt.Errorf("locked section %d field count changed from %d to %d",
			stored.ID, len(stored.Fields), len(got.Fields)))
	}
	for i, field := range stored.Fields {
		if got.Fields[i].ID != field.ID || got.Fields[i].Order != field.Order {
			errs = append(errs, fmt.Errorf("locked section %d fields were rearranged", stored.ID))
			break
		}
	}
	return errs
}
