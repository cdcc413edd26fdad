package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formwizard/pkg/account"
	"github.com/goliatone/go-formwizard/pkg/testsupport"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

type stubDriver struct {
	inputs    []string
	passwords []string
	textAreas []string
	selects   []int
	infos     []string
	prompts   []string
}

func shift[T any](queue *[]T, what string) (T, error) {
	var zero T
	if len(*queue) == 0 {
		return zero, errors.New("no " + what + " scripted")
	}
	v := (*queue)[0]
	*queue = (*queue)[1:]
	return v, nil
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	return shift(&s.inputs, "input")
}

func (s *stubDriver) Password(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	return shift(&s.passwords, "password")
}

func (s *stubDriver) TextArea(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	return shift(&s.textAreas, "textarea")
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	return shift(&s.selects, "select")
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

type backend struct {
	updates map[string]string
	auth    account.AuthResult
}

func (b *backend) UpdateFieldValue(_ context.Context, u account.FieldUpdate) (account.User, error) {
	b.updates[u.UserProperty] = u.Value
	return account.User{ID: 1}, nil
}

func (b *backend) Authenticate(context.Context, string, string) (account.AuthResult, error) {
	return b.auth, nil
}

func TestRunner_CompletesWizard(t *testing.T) {
	be := &backend{updates: map[string]string{}, auth: account.AuthResult{Success: true}}
	machine := wizard.New(testsupport.SampleForm(t).FrontendView(), be, be, wizard.WithParallelUpdates(1))
	driver := &stubDriver{
		inputs:    []string{"ada@example.com", "tomorrow", "1815-12-10", "1 Main St", "London", "", "12345"},
		passwords: []string{"password123"},
		textAreas: []string{"Mathematician"},
		selects:   []int{0, 0, 0},
	}

	err := NewRunner(machine, WithPromptDriver(driver)).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, machine.Submitted())
	assert.Equal(t, map[string]string{
		"aboutMe":    "Mathematician",
		"birthdate":  "1815-12-10",
		"street":     "1 Main St",
		"city":       "London",
		"postalCode": "12345",
	}, be.updates)
	assert.Contains(t, driver.infos, "! Birthdate must be a valid date.")
	assert.Contains(t, driver.prompts, "Email *")
	assert.Contains(t, driver.prompts, "State")
	assert.True(t, strings.HasPrefix(driver.infos[0], "== Step 1 of 3"))
	assert.Equal(t, "Thanks, your onboarding is complete.", driver.infos[len(driver.infos)-1])
}

func TestRunner_AuthFailureRepeatsStep(t *testing.T) {
	be := &backend{updates: map[string]string{}, auth: account.AuthResult{Message: "Incorrect email or password."}}
	machine := wizard.New(testsupport.SampleForm(t).FrontendView(), be, be)
	driver := &stubDriver{
		inputs:    []string{"ada@example.com"},
		passwords: []string{"password123"},
		selects:   []int{0},
	}

	err := NewRunner(machine, WithPromptDriver(driver)).Run(context.Background())
	require.Error(t, err, "script runs dry on the repeated step")
	assert.Equal(t, 0, machine.Step())
	assert.Contains(t, driver.infos, "! Incorrect email or password.")
	assert.Equal(t, 2, strings.Count(strings.Join(driver.infos, "\n"), "Step 1 of 3"))
}

func TestRunner_PreviousGoesBack(t *testing.T) {
	be := &backend{updates: map[string]string{}, auth: account.AuthResult{Success: true}}
	machine := wizard.New(testsupport.SampleForm(t).FrontendView(), be, be)
	driver := &stubDriver{
		inputs:    []string{"ada@example.com", "1815-12-10"},
		passwords: []string{"password123"},
		textAreas: []string{"Mathematician"},
		selects:   []int{0, 2},
	}

	err := NewRunner(machine, WithPromptDriver(driver)).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, machine.Step())
	assert.Empty(t, be.updates, "going back never persists")
}
