package gormstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formwizard/internal/store"
	"github.com/goliatone/go-formwizard/internal/store/storetest"
)

const dsnEnv = "FORMWIZARD_TEST_POSTGRES_DSN"

// openClean connects to the test database and drops every table so each
// subtest starts empty.
func openClean(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set; skipping postgres tests", dsnEnv)
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, s.db.Migrator().DropTable(Models()...))
	require.NoError(t, s.db.AutoMigrate(Models()...))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	if os.Getenv(dsnEnv) == "" {
		t.Skipf("%s not set; skipping postgres tests", dsnEnv)
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		return openClean(t)
	})
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	require.Error(t, err)
}
