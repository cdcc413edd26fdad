package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formwizard/pkg/layout"
	"github.com/goliatone/go-formwizard/pkg/wizard/tui"
)

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a.out = &out
	a.errOut = io.Discard
	cmd := newRootCommand(a)
	cmd.SetArgs(append([]string{"--env-file="}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sqliteArgs(t *testing.T) []string {
	t.Helper()
	return []string{"--store", "sqlite", "--dsn", filepath.Join(t.TempDir(), "formwizard.db")}
}

func TestLayoutShow_JSON(t *testing.T) {
	out, err := run(t, &app{}, "layout", "show", "-o", "json")
	require.NoError(t, err)

	var form layout.Form
	require.NoError(t, json.Unmarshal([]byte(out), &form))
	assert.Equal(t, "Onboarding", form.Name)
	assert.Len(t, form.Steps, 3)
}

func TestLayoutShow_Frontend(t *testing.T) {
	out, err := run(t, &app{}, "layout", "show", "--frontend")
	require.NoError(t, err)
	assert.NotContains(t, out, "title: Country")
	assert.Contains(t, out, "title: Address")
}

func TestLayoutEdits_PersistWithSQLite(t *testing.T) {
	store := sqliteArgs(t)

	out, err := run(t, &app{}, append(store, "seed")...)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded form 1")

	_, err = run(t, &app{}, append(store, "layout", "rename-step", "0", "Sign in")...)
	require.NoError(t, err)
	_, err = run(t, &app{}, append(store, "layout", "reorder", "1", "0", "down")...)
	require.NoError(t, err)
	_, err = run(t, &app{}, append(store, "layout", "toggle", "2.1")...)
	require.NoError(t, err)
	_, err = run(t, &app{}, append(store, "layout", "move", "1", "0", "2")...)
	require.NoError(t, err)

	out, err = run(t, &app{}, append(store, "layout", "show", "-o", "json")...)
	require.NoError(t, err)
	var form layout.Form
	require.NoError(t, json.Unmarshal([]byte(out), &form))
	assert.Equal(t, "Sign in", form.Steps[0].Title)
	require.Len(t, form.Steps[1].Sections, 1)
	assert.Equal(t, "About", form.Steps[1].Sections[0].Title)
	require.Len(t, form.Steps[2].Sections, 3)
	assert.True(t, form.Steps[2].Sections[1].IsFrontendVisible)
	assert.Equal(t, "Birthday", form.Steps[2].Sections[2].Title)
	assert.NoError(t, form.CheckInvariants())
}

func TestLayoutEdits_LockedIsRejected(t *testing.T) {
	_, err := run(t, &app{}, "layout", "move", "0", "0", "1")
	assert.True(t, errors.Is(err, errUnchanged), "got %v", err)

	_, err = run(t, &app{}, "layout", "reorder", "1", "0", "sideways")
	assert.ErrorContains(t, err, "direction")
}

func TestUsers(t *testing.T) {
	out, err := run(t, &app{}, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "demo@example.com")

	out, err = run(t, &app{}, "users", "exists", "ghost@example.com")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestConfigErrorsSurface(t *testing.T) {
	_, err := run(t, &app{}, "--store", "postgres", "users", "list")
	assert.ErrorContains(t, err, "DSN is required")
}

type scriptedDriver struct {
	inputs    []string
	passwords []string
	textAreas []string
	selects   []int
}

func pop[T any](q *[]T) (T, error) {
	var zero T
	if len(*q) == 0 {
		return zero, errors.New("script exhausted")
	}
	v := (*q)[0]
	*q = (*q)[1:]
	return v, nil
}

func (d *scriptedDriver) Input(context.Context, tui.InputConfig) (string, error) {
	return pop(&d.inputs)
}
func (d *scriptedDriver) Password(context.Context, tui.InputConfig) (string, error) {
	return pop(&d.passwords)
}
func (d *scriptedDriver) TextArea(context.Context, tui.InputConfig) (string, error) {
	return pop(&d.textAreas)
}
func (d *scriptedDriver) Select(context.Context, tui.SelectConfig) (int, error) {
	return pop(&d.selects)
}
func (d *scriptedDriver) Info(context.Context, string) error { return nil }

func TestWizard_ResumesAndCompletes(t *testing.T) {
	store := sqliteArgs(t)
	stateDir := t.TempDir()
	t.Setenv("FORMWIZARD_STATE_DIR", stateDir)

	first := &app{driver: &scriptedDriver{
		inputs:    []string{"ada@example.com"},
		passwords: []string{"password123"},
		selects:   []int{0},
	}}
	out, err := run(t, first, append(store, "wizard")...)
	require.Error(t, err, "script stops on step two")
	session := strings.TrimSpace(strings.TrimPrefix(strings.SplitN(out, "\n", 2)[0], "session "))
	require.NotEmpty(t, session)
	require.FileExists(t, filepath.Join(stateDir, session+".yaml"))

	second := &app{driver: &scriptedDriver{
		inputs:    []string{"1815-12-10", "1 Main St", "London", "", "12345"},
		textAreas: []string{"Mathematician"},
		selects:   []int{0, 0},
	}}
	_, err = run(t, second, append(store, "wizard", "--session", session)...)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(stateDir, session+".yaml"))

	out, err = run(t, &app{}, append(store, "users", "show", "ada@example.com", "-o", "json")...)
	require.NoError(t, err)
	assert.Contains(t, out, `"city": "London"`)
	assert.Contains(t, out, `"aboutMe": "Mathematician"`)
}
