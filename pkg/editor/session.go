package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/goliatone/go-formwizard/pkg/layout"
)

var (
	// ErrNoLayout is returned when an operation needs a loaded layout.
	ErrNoLayout = errors.New("editor: no layout loaded")
	// ErrSaveInProgress is returned when Save is called while a previous save
	// has not finished.
	ErrSaveInProgress = errors.New("editor: save already in progress")
)

// Backend fetches and persists the admin (unfiltered) layout. Both the
// in-process service and the HTTP client satisfy it.
type Backend interface {
	FetchAdminLayout(ctx context.Context) (*layout.Form, error)
	SaveLayout(ctx context.Context, form *layout.Form) (*layout.Form, error)
}

// Session owns one admin working copy plus the snapshot it was cloned from.
// Edits only touch the working copy; Save replaces both with the canonical
// tree the backend returns. The snapshot is what callers compare against to
// show unsaved changes. It is not sent as a diff baseline: the backend diffs
// against the tree stored at save time, inside its transaction.
type Session struct {
	backend Backend
	logger  *slog.Logger

	mu      sync.Mutex
	working *layout.Form
	synced  *layout.Form
	writing bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates an empty session bound to backend. Call Load before
// editing.
func NewSession(backend Backend, options ...Option) *Session {
	s := &Session{
		backend: backend,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Load fetches the canonical layout and takes a fresh working clone,
// discarding unsaved edits.
func (s *Session) Load(ctx context.Context) error {
	form, err := s.backend.FetchAdminLayout(ctx)
	if err != nil {
		return fmt.Errorf("editor: load layout: %w", err)
	}
	if form == nil {
		return ErrNoLayout
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = form
	s.working = form.Clone()
	return nil
}

// Working returns a clone of the current working copy.
func (s *Session) Working() *layout.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working.Clone()
}

// Synced returns a clone of the last canonical snapshot.
func (s *Session) Synced() *layout.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced.Clone()
}

// Edit applies fn to the working copy. fn must not retain the form.
func (s *Session) Edit(fn func(*layout.Form) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.working == nil {
		return false
	}
	changed := fn(s.working)
	if changed {
		s.logger.Debug("layout edited")
	}
	return changed
}

// ReorderWithinParent applies ReorderWithinParent to the working copy.
func (s *Session) ReorderWithinParent(parent layout.Path, index int, dir Direction) bool {
	return s.Edit(func(f *layout.Form) bool { return ReorderWithinParent(f, parent, index, dir) })
}

// MoveToAnotherParent applies MoveToAnotherParent to the working copy.
func (s *Session) MoveToAnotherParent(from layout.Path, index int, to layout.Path) bool {
	return s.Edit(func(f *layout.Form) bool { return MoveToAnotherParent(f, from, index, to) })
}

// ToggleVisibility applies ToggleVisibility to the working copy.
func (s *Session) ToggleVisibility(section layout.Path) bool {
	return s.Edit(func(f *layout.Form) bool { return ToggleVisibility(f, section) })
}

// RenameStep applies RenameStep to the working copy.
func (s *Session) RenameStep(stepIndex int, title string) bool {
	return s.Edit(func(f *layout.Form) bool { return RenameStep(f, stepIndex, title) })
}

// Save persists the working copy. On success the returned canonical tree
// replaces both the snapshot and the working copy; on failure the working
// copy is kept so the edit can be retried.
func (s *Session) Save(ctx context.Context) (*layout.Form, error) {
	s.mu.Lock()
	if s.writing {
		s.mu.Unlock()
		return nil, ErrSaveInProgress
	}
	if s.working == nil {
		s.mu.Unlock()
		return nil, ErrNoLayout
	}
	s.writing = true
	pending := s.working.Clone()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.writing = false
		s.mu.Unlock()
	}()

	saved, err := s.backend.SaveLayout(ctx, pending)
	if err != nil {
		s.logger.Error("layout save failed", "form", pending.ID, "error", err)
		return nil, fmt.Errorf("editor: save layout: %w", err)
	}

	s.mu.Lock()
	s.synced = saved
	s.working = saved.Clone()
	s.mu.Unlock()

	s.logger.Info("layout saved", "form", saved.ID, "steps", len(saved.Steps))
	return saved.Clone(), nil
}
