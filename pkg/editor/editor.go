package editor

import (
	"github.com/goliatone/go-formwizard/pkg/layout"
)

// Direction selects the neighbour a reorder swaps with.
type Direction int

const (
	Up   Direction = -1
	Down Direction = 1
)

// Valid reports whether d is Up or Down.
func (d Direction) Valid() bool {
	return d == Up || d == Down
}

// ReorderWithinParent swaps the child at index with its neighbour in dir.
// Only the two affected order values are rewritten. The call is a no-op
// when the neighbour is out of bounds or either node is locked; the result
// reports whether the tree changed.
func ReorderWithinParent(form *layout.Form, parent layout.Path, index int, dir Direction) bool {
	if form == nil || !dir.Valid() {
		return false
	}
	list, ok := childrenOf(form, parent)
	if !ok {
		return false
	}
	target := index + int(dir)
	if index < 0 || index >= list.len() || target < 0 || target >= list.len() {
		return false
	}
	if list.locked(index) || list.locked(target) {
		return false
	}
	list.swap(index, target)
	list.setOrder(index, index)
	list.setOrder(target, target)
	return true
}

// MoveToAnotherParent removes the child at index from the from parent and
// appends it to the to parent, updating its parent reference and renumbering
// the remaining source children. It is a no-op when the child is missing or
// locked, when to equals from, when the parents are not of the same depth,
// or when removal would shift a locked sibling.
func MoveToAnotherParent(form *layout.Form, from layout.Path, index int, to layout.Path) bool {
	if form == nil || from.Equal(to) || from.Depth() != to.Depth() {
		return false
	}
	src, ok := childrenOf(form, from)
	if !ok {
		return false
	}
	dst, ok := childrenOf(form, to)
	if !ok || !dst.reparentable() {
		return false
	}
	if index < 0 || index >= src.len() || src.locked(index) {
		return false
	}
	for i := index + 1; i < src.len(); i++ {
		if src.locked(i) {
			return false
		}
	}
	if dst.frozen() {
		return false
	}

	moved := src.remove(index)
	dst.append(moved)
	for i := index; i < src.len(); i++ {
		src.setOrder(i, i)
	}
	dst.setOrder(dst.len()-1, dst.len()-1)
	return true
}

// ToggleVisibility flips IsFrontendVisible on the addressed section. The
// admin-moveable flag does not restrict visibility changes.
func ToggleVisibility(form *layout.Form, sectionPath layout.Path) bool {
	section := form.SectionAt(sectionPath)
	if section == nil {
		return false
	}
	section.IsFrontendVisible = !section.IsFrontendVisible
	return true
}

// RenameStep replaces the step title verbatim. Empty titles are allowed.
func RenameStep(form *layout.Form, stepIndex int, title string) bool {
	step := form.StepAt(stepIndex)
	if step == nil {
		return false
	}
	step.Title = title
	return true
}
