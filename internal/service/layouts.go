// Package service implements the backend operations the HTTP API and the CLI
// expose: layout fetch/save and onboarding user writes.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/goliatone/go-formwizard/internal/store"
	"github.com/goliatone/go-formwizard/pkg/layout"
	"github.com/goliatone/go-formwizard/pkg/layoutsync"
)

// Layouts serves the single active layout.
type Layouts struct {
	store  store.Store
	syncer *layoutsync.Syncer
	logger *slog.Logger
}

// Option configures the services.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	hashCost int
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHashCost overrides the bcrypt cost used for new passwords.
func WithHashCost(cost int) Option {
	return func(o *options) {
		if cost > 0 {
			o.hashCost = cost
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// NewLayouts binds the layout service to st.
func NewLayouts(st store.Store, opts ...Option) *Layouts {
	o := buildOptions(opts)
	return &Layouts{
		store:  st,
		syncer: layoutsync.NewSyncer(st, layoutsync.WithLogger(o.logger)),
		logger: o.logger,
	}
}

// FetchAdminLayout returns the full tree including hidden sections.
func (l *Layouts) FetchAdminLayout(ctx context.Context) (*layout.Form, error) {
	form, err := l.store.ActiveForm(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: admin layout: %w", err)
	}
	return form, nil
}

// FetchFrontendLayout returns the tree without hidden sections.
func (l *Layouts) FetchFrontendLayout(ctx context.Context) (*layout.Form, error) {
	form, err := l.store.ActiveForm(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: frontend layout: %w", err)
	}
	return form.FrontendView(), nil
}

// SaveLayout strips markup from admin-entered text, syncs the tree against
// storage and returns the canonical result.
func (l *Layouts) SaveLayout(ctx context.Context, form *layout.Form) (*layout.Form, error) {
	if form == nil {
		return nil, fmt.Errorf("%w: layout body required", ErrInvalidInput)
	}
	pending := form.Clone()
	pending.Sanitize()
	res, err := l.syncer.Save(ctx, pending, nil)
	if err != nil {
		return nil, err
	}
	return res.Form, nil
}
