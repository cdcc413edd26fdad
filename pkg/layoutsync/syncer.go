// Package layoutsync persists an edited layout tree by writing only the
// entities that differ from a baseline, inside one transaction, and returns
// the canonical tree read back from storage.
package layoutsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goliatone/go-formwizard/internal/store"
	"github.com/goliatone/go-formwizard/pkg/layout"
)

var (
	// ErrFormNotFound is returned when the edited form id has no stored row.
	ErrFormNotFound = store.ErrFormNotFound
	// ErrInvalidLayout is returned for trees that break ordering or parent
	// invariants.
	ErrInvalidLayout = errors.New("layoutsync: invalid layout")
)

// Syncer applies layout saves against a store.
type Syncer struct {
	store  store.Store
	logger *slog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the syncer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSyncer binds a syncer to st.
func NewSyncer(st store.Store, options ...Option) *Syncer {
	s := &Syncer{store: st, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Result carries the canonical tree after a save and the plan that was
// applied to reach it.
type Result struct {
	Form *layout.Form
	Plan Plan
}

// Save diffs edited against baseline and applies the plan atomically. A nil
// baseline means the stored tree read inside the transaction. The admin
// lock flag is owned by storage: incoming values for existing sections are
// replaced with the stored ones before diffing. Trees that drop a stored
// entity or move a locked section are rejected with ErrInvalidLayout and
// nothing is written. Last writer wins; there is no version check.
func (s *Syncer) Save(ctx context.Context, edited, baseline *layout.Form) (Result, error) {
	if edited == nil {
		return Result{}, fmt.Errorf("%w: nil form", ErrInvalidLayout)
	}
	if err := edited.CheckInvariants(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}

	var result Result
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		current, err := tx.Form(ctx, edited.ID)
		if err != nil {
			return err
		}
		if baseline == nil {
			baseline = current
		}

		pending := edited.Clone()
		pinLocks(pending, current)
		if err := checkAgainstStored(pending, current); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidLayout, err)
		}
		plan := Diff(pending, baseline)

		for _, rec := range plan.Steps {
			if err := tx.UpsertStep(ctx, rec); err != nil {
				return err
			}
		}
		for _, rec := range plan.Sections {
			if err := tx.UpsertSection(ctx, rec); err != nil {
				return err
			}
		}
		for _, rec := range plan.Fields {
			if err := tx.UpsertField(ctx, rec); err != nil {
				return err
			}
		}

		canonical, err := tx.Form(ctx, edited.ID)
		if err != nil {
			return err
		}
		result = Result{Form: canonical, Plan: plan}
		return nil
	})
	if err != nil {
		s.logger.Error("layout sync failed", "form", edited.ID, "error", err)
		return Result{}, fmt.Errorf("layoutsync: save form %d: %w", edited.ID, err)
	}

	s.logger.Info("layout synced",
		"form", edited.ID,
		"steps", len(result.Plan.Steps),
		"sections", len(result.Plan.Sections),
		"fields", len(result.Plan.Fields),
	)
	return result, nil
}

func pinLocks(form, stored *layout.Form) {
	locks := map[int64]bool{}
	for _, step := range stored.Steps {
		for _, section := range step.Sections {
			locks[section.ID] = section.IsAdminMoveable
		}
	}
	for _, step := range form.Steps {
		for _, section := range step.Sections {
			if moveable, ok := locks[section.ID]; ok {
				section.IsAdminMoveable = moveable
			}
		}
	}
}
