package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// Depth identifies the level a Path points at.
type Depth int

const (
	DepthForm Depth = iota
	DepthStep
	DepthSection
	DepthField
)

func (d Depth) String() string {
	switch d {
	case DepthForm:
		return "form"
	case DepthStep:
		return "step"
	case DepthSection:
		return "section"
	case DepthField:
		return "field"
	default:
		return "depth(" + strconv.Itoa(int(d)) + ")"
	}
}

// Path addresses a node by child indices from the form root: an empty path
// is the form, [s] a step, [s, c] a section and [s, c, f] a field.
type Path []int

// Depth reports which level the path addresses.
func (p Path) Depth() Depth {
	return Depth(len(p))
}

// Child extends the path by one index.
func (p Path) Child(index int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = index
	return out
}

// Equal reports whether both paths address the same node.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders the path in the dotted form accepted by ParsePath.
func (p Path) String() string {
	if len(p) == 0 {
		return "."
	}
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ".")
}

// ParsePath parses dotted index paths such as "0.1". "." and "" address the
// form itself.
func ParsePath(raw string) (Path, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "." {
		return Path{}, nil
	}
	segments := strings.Split(trimmed, ".")
	if len(segments) > int(DepthField) {
		return nil, fmt.Errorf("layout: path %q is deeper than a field", raw)
	}
	out := make(Path, len(segments))
	for i, segment := range segments {
		idx, err := strconv.Atoi(strings.TrimSpace(segment))
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("layout: invalid path segment %q in %q", segment, raw)
		}
		out[i] = idx
	}
	return out, nil
}

// StepAt returns the step at index, or nil when out of range.
func (f *Form) StepAt(index int) *Step {
	if f == nil || index < 0 || index >= len(f.Steps) {
		return nil
	}
	return f.Steps[index]
}

// SectionAt resolves a section path of depth two.
func (f *Form) SectionAt(p Path) *Section {
	if p.Depth() != DepthSection {
		return nil
	}
	step := f.StepAt(p[0])
	if step == nil || p[1] < 0 || p[1] >= len(step.Sections) {
		return nil
	}
	return step.Sections[p[1]]
}

// FieldAt resolves a field path of depth three.
func (f *Form) FieldAt(p Path) *Field {
	if p.Depth() != DepthField {
		return nil
	}
	section := f.SectionAt(p[:2])
	if section == nil || p[2] < 0 || p[2] >= len(section.Fields) {
		return nil
	}
	return section.Fields[p[2]]
}
