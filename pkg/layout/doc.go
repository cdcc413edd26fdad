// Package layout defines the ordered Form → Step → Section → Field tree shared
// by the admin editor, the sync protocol and the runtime wizard. Every level
// carries a zero-based Order scoped to its parent; CheckInvariants verifies
// that orders stay dense and that parent references match the tree shape.
// FrontendView produces the runtime-facing tree without hidden sections and
// never mutates its receiver.
package layout
