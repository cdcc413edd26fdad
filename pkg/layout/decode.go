package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode parses a JSON or YAML layout document. Hand-written seed files may
// omit order values and parent ids; Decode renumbers the tree so the result
// always satisfies CheckInvariants.
func Decode(data []byte, source string) (*Form, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("layout: document %s is empty", source)
	}

	var form Form
	jsonErr := json.Unmarshal(data, &form)
	if jsonErr != nil {
		form = Form{}
		if yamlErr := yaml.Unmarshal(data, &form); yamlErr != nil {
			return nil, fmt.Errorf("layout: parse %s: invalid JSON or YAML: %w", source, errors.Join(jsonErr, yamlErr))
		}
	}

	if err := validateDocument(&form, source); err != nil {
		return nil, err
	}
	form.Renumber()
	return &form, nil
}

func validateDocument(form *Form, source string) error {
	if form.ID <= 0 {
		return fmt.Errorf("layout: document %s is missing a positive form id", source)
	}
	steps := make(map[int64]struct{})
	sections := make(map[int64]struct{})
	fields := make(map[int64]struct{})
	for si, step := range form.Steps {
		if step == nil {
			return fmt.Errorf("layout: document %s has an empty step at index %d", source, si)
		}
		if err := claimID(steps, step.ID, "step", source); err != nil {
			return err
		}
		for ci, section := range step.Sections {
			if section == nil {
				return fmt.Errorf("layout: document %s step %d has an empty section at index %d", source, step.ID, ci)
			}
			if err := claimID(sections, section.ID, "section", source); err != nil {
				return err
			}
			for fi, field := range section.Fields {
				if field == nil {
					return fmt.Errorf("layout: document %s section %d has an empty field at index %d", source, section.ID, fi)
				}
				if err := claimID(fields, field.ID, "field", source); err != nil {
					return err
				}
				if !field.FieldType.Valid() {
					return fmt.Errorf("layout: document %s field %d has unknown type %q", source, field.ID, field.FieldType)
				}
				if strings.TrimSpace(field.UserProperty) == "" {
					return fmt.Errorf("layout: document %s field %d is missing userProperty", source, field.ID)
				}
			}
		}
	}
	return nil
}

func claimID(seen map[int64]struct{}, id int64, kind, source string) error {
	if id <= 0 {
		return fmt.Errorf("layout: document %s has a %s without a positive id", source, kind)
	}
	if _, exists := seen[id]; exists {
		return fmt.Errorf("layout: document %s defines duplicate %s id %d", source, kind, id)
	}
	seen[id] = struct{}{}
	return nil
}
