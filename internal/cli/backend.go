package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	formwizard "github.com/goliatone/go-formwizard"
	"github.com/goliatone/go-formwizard/internal/config"
	"github.com/goliatone/go-formwizard/internal/server"
	"github.com/goliatone/go-formwizard/internal/service"
	"github.com/goliatone/go-formwizard/internal/store"
	"github.com/goliatone/go-formwizard/internal/store/gormstore"
	"github.com/goliatone/go-formwizard/internal/store/memstore"
	"github.com/goliatone/go-formwizard/internal/store/sqlitestore"
	"github.com/goliatone/go-formwizard/pkg/client"
	"github.com/goliatone/go-formwizard/pkg/layout"
)

// backend is everything the commands need, served either in process or
// over HTTP.
type backend interface {
	server.LayoutService
	server.UserService
}

type localBackend struct {
	*service.Layouts
	*service.Users
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	switch a.cfg.Store {
	case config.StoreMemory:
		return memstore.New(), nil
	case config.StoreSQLite:
		return sqlitestore.Open(a.cfg.DSN)
	case config.StorePostgres:
		return gormstore.Open(ctx, a.cfg.DSN)
	default:
		return nil, fmt.Errorf("cli: unknown store %q", a.cfg.Store)
	}
}

func loadSeed(path string) (*layout.Form, error) {
	if path == "" {
		return formwizard.DefaultLayout()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cli: read seed: %w", err)
	}
	return layout.Decode(data, path)
}

// ensureSeeded loads the configured seed into a store without a layout.
func (a *app) ensureSeeded(ctx context.Context, st store.Store) error {
	_, err := st.ActiveForm(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrFormNotFound) {
		return err
	}
	form, err := loadSeed(a.cfg.Seed)
	if err != nil {
		return err
	}
	if err := st.Seed(ctx, form); err != nil {
		return err
	}
	a.logger.Info("store seeded", "form", form.ID, "steps", len(form.Steps))
	return nil
}

// openBackend returns the HTTP client when a server is configured, otherwise
// services over a seeded store. The returned func releases resources.
func (a *app) openBackend(ctx context.Context) (backend, func(), error) {
	if a.cfg.ServerURL != "" {
		c, err := client.New(a.cfg.ServerURL, client.WithLogger(a.logger))
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := a.ensureSeeded(ctx, st); err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	b := localBackend{
		Layouts: service.NewLayouts(st, service.WithLogger(a.logger)),
		Users:   service.NewUsers(st, service.WithLogger(a.logger)),
	}
	return b, func() { _ = st.Close() }, nil
}
